// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jfairbairn/reelsync/internal/cache"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/state"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// fakeAPI is a scriptable trakt.API recording every mutation call.
type fakeAPI struct {
	watched   []models.WatchedEntry
	collected []models.CollectedEntry
	ratings   []models.RatingEntry
	playback  []models.PlaybackEntry

	// pageSizes records the size of each mutation page, in call order.
	pageSizes []int

	// notFound is returned on every mutation call.
	notFound []models.MediaIdentity

	// failAfterPages makes mutation calls fail once this many pages
	// have succeeded. Negative disables.
	failAfterPages int

	pagesSent int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{failAfterPages: -1}
}

func (f *fakeAPI) FetchWatched(ctx context.Context) ([]models.WatchedEntry, error) {
	return append([]models.WatchedEntry(nil), f.watched...), nil
}

func (f *fakeAPI) FetchCollected(ctx context.Context) ([]models.CollectedEntry, error) {
	return append([]models.CollectedEntry(nil), f.collected...), nil
}

func (f *fakeAPI) FetchRatings(ctx context.Context) ([]models.RatingEntry, error) {
	return append([]models.RatingEntry(nil), f.ratings...), nil
}

func (f *fakeAPI) FetchPlayback(ctx context.Context) ([]models.PlaybackEntry, error) {
	return append([]models.PlaybackEntry(nil), f.playback...), nil
}

func (f *fakeAPI) mutate(size int) (*trakt.SyncResult, error) {
	if f.failAfterPages >= 0 && f.pagesSent >= f.failAfterPages {
		return nil, fmt.Errorf("remote unreachable")
	}
	f.pagesSent++
	f.pageSizes = append(f.pageSizes, size)
	return &trakt.SyncResult{Accepted: size - len(f.notFound), NotFound: f.notFound}, nil
}

func (f *fakeAPI) AddWatchedHistory(ctx context.Context, entries []models.WatchedEntry) (*trakt.SyncResult, error) {
	return f.mutate(len(entries))
}

func (f *fakeAPI) AddCollection(ctx context.Context, entries []models.CollectedEntry) (*trakt.SyncResult, error) {
	return f.mutate(len(entries))
}

func (f *fakeAPI) RemoveCollection(ctx context.Context, ids []models.MediaIdentity) (*trakt.SyncResult, error) {
	return f.mutate(len(ids))
}

func (f *fakeAPI) AddRatings(ctx context.Context, entries []models.RatingEntry) (*trakt.SyncResult, error) {
	return f.mutate(len(entries))
}

func (f *fakeAPI) RemoveRatings(ctx context.Context, ids []models.MediaIdentity) (*trakt.SyncResult, error) {
	return f.mutate(len(ids))
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

// fakeProvider is an in-memory LibraryProvider.
type fakeProvider struct {
	name    string
	items   []models.LocalItem
	ratings []models.RatingEntry

	resumeWrites map[int]int
}

func newFakeProvider(name string, items ...models.LocalItem) *fakeProvider {
	return &fakeProvider{name: name, items: items, resumeWrites: make(map[int]int)}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) ListAll(ctx context.Context) ([]models.LocalItem, error) {
	return append([]models.LocalItem(nil), p.items...), nil
}

func (p *fakeProvider) SetWatched(ctx context.Context, internalID int, watched bool, playCount int) error {
	for i := range p.items {
		if p.items[i].InternalID == internalID {
			p.items[i].Watched = watched
			p.items[i].WatchCount = playCount
			return nil
		}
	}
	return fmt.Errorf("no item %d", internalID)
}

func (p *fakeProvider) SetLastWatched(ctx context.Context, internalID int, at time.Time) error {
	for i := range p.items {
		if p.items[i].InternalID == internalID {
			p.items[i].LastWatchedAt = at
			return nil
		}
	}
	return fmt.Errorf("no item %d", internalID)
}

func (p *fakeProvider) SetResumePosition(ctx context.Context, internalID int, seconds int) error {
	for i := range p.items {
		if p.items[i].InternalID == internalID {
			p.items[i].ResumeSeconds = seconds
			p.resumeWrites[internalID] = seconds
			return nil
		}
	}
	return fmt.Errorf("no item %d", internalID)
}

func (p *fakeProvider) Lookup(ctx context.Context, filePath string) (*models.LocalItem, error) {
	for i := range p.items {
		if p.items[i].FilePath == filePath {
			item := p.items[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (p *fakeProvider) ListRatings(ctx context.Context) ([]models.RatingEntry, error) {
	return append([]models.RatingEntry(nil), p.ratings...), nil
}

func ident(imdb, title string, year int) models.MediaIdentity {
	return models.MediaIdentity{Title: title, Year: year, IDs: models.MediaIDs{IMDB: imdb}}
}

func localItem(id int, identity models.MediaIdentity) models.LocalItem {
	return models.LocalItem{
		Identity:        identity,
		InternalID:      id,
		DurationSeconds: 7200,
		FilePath:        fmt.Sprintf("/media/movies/%d.mkv", id),
	}
}

func newTestCache(t *testing.T, api trakt.API) *cache.RemoteState {
	t.Helper()
	return cache.NewRemoteState(api, time.Hour)
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
