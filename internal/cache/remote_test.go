// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// fakeAPI is a scriptable trakt.API for cache tests. Only the fetch
// surface is exercised here.
type fakeAPI struct {
	watched   []models.WatchedEntry
	collected []models.CollectedEntry
	ratings   []models.RatingEntry
	playback  []models.PlaybackEntry

	watchedFetches int
}

func (f *fakeAPI) FetchWatched(ctx context.Context) ([]models.WatchedEntry, error) {
	f.watchedFetches++
	out := make([]models.WatchedEntry, len(f.watched))
	copy(out, f.watched)
	return out, nil
}

func (f *fakeAPI) FetchCollected(ctx context.Context) ([]models.CollectedEntry, error) {
	return f.collected, nil
}

func (f *fakeAPI) FetchRatings(ctx context.Context) ([]models.RatingEntry, error) {
	return f.ratings, nil
}

func (f *fakeAPI) FetchPlayback(ctx context.Context) ([]models.PlaybackEntry, error) {
	return f.playback, nil
}

func (f *fakeAPI) AddWatchedHistory(ctx context.Context, entries []models.WatchedEntry) (*trakt.SyncResult, error) {
	return &trakt.SyncResult{Accepted: len(entries)}, nil
}

func (f *fakeAPI) AddCollection(ctx context.Context, entries []models.CollectedEntry) (*trakt.SyncResult, error) {
	return &trakt.SyncResult{Accepted: len(entries)}, nil
}

func (f *fakeAPI) RemoveCollection(ctx context.Context, ids []models.MediaIdentity) (*trakt.SyncResult, error) {
	return &trakt.SyncResult{Accepted: len(ids)}, nil
}

func (f *fakeAPI) AddRatings(ctx context.Context, entries []models.RatingEntry) (*trakt.SyncResult, error) {
	return &trakt.SyncResult{Accepted: len(entries)}, nil
}

func (f *fakeAPI) RemoveRatings(ctx context.Context, ids []models.MediaIdentity) (*trakt.SyncResult, error) {
	return &trakt.SyncResult{Accepted: len(ids)}, nil
}

func (f *fakeAPI) StartScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*trakt.ScrobbleResult, error) {
	return &trakt.ScrobbleResult{Action: trakt.ActionStart, Progress: progress}, nil
}

func (f *fakeAPI) PauseScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*trakt.ScrobbleResult, error) {
	return &trakt.ScrobbleResult{Action: trakt.ActionPause, Progress: progress}, nil
}

func (f *fakeAPI) StopScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*trakt.ScrobbleResult, error) {
	return &trakt.ScrobbleResult{Action: trakt.ActionScrobble, Progress: progress}, nil
}

func ident(imdb, title string, year int) models.MediaIdentity {
	return models.MediaIdentity{Title: title, Year: year, IDs: models.MediaIDs{IMDB: imdb}}
}

func TestWatchedServedFromSnapshotWithinTTL(t *testing.T) {
	api := &fakeAPI{watched: []models.WatchedEntry{
		{Identity: ident("tt0078748", "Alien", 1979), Plays: 1},
	}}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewRemoteState(api, 15*time.Minute)
	c.now = func() time.Time { return clock }

	for range 3 {
		entries, err := c.Watched(context.Background())
		if err != nil {
			t.Fatalf("Watched: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
	}
	if api.watchedFetches != 1 {
		t.Errorf("fetches = %d, want 1 within TTL", api.watchedFetches)
	}

	clock = clock.Add(16 * time.Minute)
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatalf("Watched after TTL: %v", err)
	}
	if api.watchedFetches != 2 {
		t.Errorf("fetches = %d, want 2 after TTL expiry", api.watchedFetches)
	}
}

func TestUnwatchedDeltaFromSuccessiveSnapshots(t *testing.T) {
	alien := ident("tt0078748", "Alien", 1979)
	heat := ident("tt0113277", "Heat", 1995)
	api := &fakeAPI{watched: []models.WatchedEntry{
		{Identity: alien, Plays: 1},
		{Identity: heat, Plays: 2},
	}}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewRemoteState(api, time.Minute)
	c.now = func() time.Time { return clock }

	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}
	if delta := c.UnwatchedDelta(); len(delta) != 0 {
		t.Fatalf("first snapshot produced delta %v, want none", delta)
	}

	// The user unwatches Alien remotely.
	api.watched = []models.WatchedEntry{{Identity: heat, Plays: 2}}
	clock = clock.Add(2 * time.Minute)
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}

	delta := c.UnwatchedDelta()
	if len(delta) != 1 || !models.Matches(delta[0], alien) {
		t.Fatalf("delta = %v, want exactly Alien", delta)
	}

	// Consuming the delta clears it.
	if again := c.UnwatchedDelta(); len(again) != 0 {
		t.Errorf("second read returned %v, want empty", again)
	}
}

func TestRequeueUnwatchedRestoresConsumedDelta(t *testing.T) {
	alien := ident("tt0078748", "Alien", 1979)
	heat := ident("tt0113277", "Heat", 1995)
	api := &fakeAPI{}

	c := NewRemoteState(api, time.Minute)

	// A consumer that aborts mid-cycle puts the delta back; the next
	// consumer sees it once, with no duplicates.
	c.RequeueUnwatched([]models.MediaIdentity{alien, heat})
	c.RequeueUnwatched([]models.MediaIdentity{alien})

	delta := c.UnwatchedDelta()
	if len(delta) != 2 {
		t.Fatalf("delta = %v, want alien and heat exactly once", delta)
	}
	if again := c.UnwatchedDelta(); len(again) != 0 {
		t.Errorf("second read returned %v, want empty", again)
	}

	// Requeueing nothing is a no-op.
	c.RequeueUnwatched(nil)
	if d := c.UnwatchedDelta(); len(d) != 0 {
		t.Errorf("delta after nil requeue = %v, want empty", d)
	}
}

func TestAddWatchedMergesOptimistically(t *testing.T) {
	alien := ident("tt0078748", "Alien", 1979)
	api := &fakeAPI{watched: []models.WatchedEntry{{Identity: alien, Plays: 1}}}

	c := NewRemoteState(api, time.Hour)
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}

	heat := ident("tt0113277", "Heat", 1995)
	when := time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)
	c.AddWatched([]models.WatchedEntry{
		{Identity: alien, Plays: 4, LastWatchedAt: when},
		{Identity: heat, Plays: 1, LastWatchedAt: when},
	})

	entries, err := c.Watched(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Plays != 4 {
		t.Errorf("merged plays = %d, want raised to 4", entries[0].Plays)
	}
	if api.watchedFetches != 1 {
		t.Errorf("fetches = %d, optimistic update must not trigger a re-fetch", api.watchedFetches)
	}
}

func TestRemoveWatchedRollsBackRejectedEntries(t *testing.T) {
	alien := ident("tt0078748", "Alien", 1979)
	api := &fakeAPI{watched: []models.WatchedEntry{}}

	c := NewRemoteState(api, time.Hour)
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.AddWatched([]models.WatchedEntry{{Identity: alien, Plays: 1}})
	c.RemoveWatched([]models.MediaIdentity{alien})

	entries, err := c.Watched(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after rollback, want 0", len(entries))
	}
}

func TestAppendWatchedPlay(t *testing.T) {
	alien := ident("tt0078748", "Alien", 1979)
	api := &fakeAPI{watched: []models.WatchedEntry{{Identity: alien, Plays: 2}}}

	c := NewRemoteState(api, time.Hour)
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}

	when := time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)
	c.AppendWatchedPlay(alien, when)

	entries, _ := c.Watched(context.Background())
	if entries[0].Plays != 3 {
		t.Errorf("plays = %d, want incremented to 3", entries[0].Plays)
	}
	if !entries[0].LastWatchedAt.Equal(when) {
		t.Errorf("lastWatchedAt = %v, want %v", entries[0].LastWatchedAt, when)
	}

	// Unknown item becomes a fresh single-play entry.
	heat := ident("tt0113277", "Heat", 1995)
	c.AppendWatchedPlay(heat, when)
	entries, _ = c.Watched(context.Background())
	if len(entries) != 2 || entries[1].Plays != 1 {
		t.Errorf("entries = %+v, want Heat appended with 1 play", entries)
	}
}

func TestSetAccountInvalidates(t *testing.T) {
	api := &fakeAPI{watched: []models.WatchedEntry{
		{Identity: ident("tt0078748", "Alien", 1979), Plays: 1},
	}}

	c := NewRemoteState(api, time.Hour)
	c.SetAccount("alice")
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.watchedFetches != 1 {
		t.Fatalf("fetches = %d, want 1", api.watchedFetches)
	}

	// Same account again is a no-op.
	c.SetAccount("alice")
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.watchedFetches != 1 {
		t.Errorf("fetches = %d, re-setting same account must not invalidate", api.watchedFetches)
	}

	// A different account drops all snapshots. The delta from the old
	// account must not survive either.
	c.SetAccount("bob")
	if _, err := c.Watched(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.watchedFetches != 2 {
		t.Errorf("fetches = %d, want re-fetch after account switch", api.watchedFetches)
	}
	if delta := c.UnwatchedDelta(); len(delta) != 0 {
		t.Errorf("delta survived account switch: %v", delta)
	}
}

func TestRemovePlayback(t *testing.T) {
	heat := ident("tt0113277", "Heat", 1995)
	api := &fakeAPI{playback: []models.PlaybackEntry{
		{Identity: heat, Type: "movie", Progress: 42.0},
	}}

	c := NewRemoteState(api, time.Hour)
	if _, err := c.Playback(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.RemovePlayback(heat)
	entries, _ := c.Playback(context.Background())
	if len(entries) != 0 {
		t.Errorf("got %d playback entries after removal, want 0", len(entries))
	}
}
