// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"testing"
	"time"

	"github.com/jfairbairn/reelsync/internal/models"
)

func TestReconcileWatchedPushesLocalOnly(t *testing.T) {
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 2

	cs := ReconcileWatched([]models.LocalItem{item}, nil, nil)

	if len(cs.ToPush) != 1 {
		t.Fatalf("toPush = %d entries, want 1", len(cs.ToPush))
	}
	if cs.ToPush[0].Plays != 2 {
		t.Errorf("plays = %d, want 2", cs.ToPush[0].Plays)
	}
	if len(cs.ToApplyLocally) != 0 {
		t.Errorf("toApplyLocally = %v, want empty", cs.ToApplyLocally)
	}
}

func TestReconcileWatchedPushFloorsPlaysAtOne(t *testing.T) {
	// A watched item with a zero recorded count pushes one play and
	// raises the local count to the same floor, so both sides agree
	// after a single pass.
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 0

	cs := ReconcileWatched([]models.LocalItem{item}, nil, nil)
	if len(cs.ToPush) != 1 || cs.ToPush[0].Plays != 1 {
		t.Fatalf("toPush = %+v, want single entry with 1 play", cs.ToPush)
	}
	if len(cs.ToApplyLocally) != 1 {
		t.Fatalf("toApplyLocally = %+v, want the local count raised to 1", cs.ToApplyLocally)
	}
	change := cs.ToApplyLocally[0]
	if !change.Watched || change.PlayCount != 1 || change.InternalID != 1 {
		t.Errorf("local change = %+v, want watched with count 1", change)
	}

	// With the floor applied on both sides, the next pass is a no-op.
	item.WatchCount = change.PlayCount
	second := ReconcileWatched([]models.LocalItem{item}, []models.WatchedEntry{cs.ToPush[0]}, nil)
	if !second.Empty() {
		t.Errorf("second pass = %+v, want empty", second)
	}
}

func TestReconcileWatchedRaisesLocalFromRemote(t *testing.T) {
	// Reference scenario: local unwatched, remote plays=3.
	item := localItem(7, ident("tt0078748", "Alien", 1979))
	remote := []models.WatchedEntry{{
		Identity:      ident("tt0078748", "Alien", 1979),
		Plays:         3,
		LastWatchedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote, nil)

	if len(cs.ToPush) != 0 {
		t.Errorf("toPush = %v, want empty (remote already has it)", cs.ToPush)
	}
	if len(cs.ToApplyLocally) != 1 {
		t.Fatalf("toApplyLocally = %d entries, want 1", len(cs.ToApplyLocally))
	}

	change := cs.ToApplyLocally[0]
	if change.InternalID != 7 || !change.Watched || change.PlayCount != 3 {
		t.Errorf("change = %+v, want internalID=7 watched=true playCount=3", change)
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !change.LastWatchedAt.Equal(want) {
		t.Errorf("lastWatchedAt = %v, want %v", change.LastWatchedAt, want)
	}
}

func TestReconcileWatchedKeepsLocalWatchDate(t *testing.T) {
	item := localItem(7, ident("tt0078748", "Alien", 1979))
	item.LastWatchedAt = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	remote := []models.WatchedEntry{{
		Identity:      ident("tt0078748", "Alien", 1979),
		Plays:         3,
		LastWatchedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote, nil)
	if len(cs.ToApplyLocally) != 1 {
		t.Fatal("expected one local change")
	}
	if !cs.ToApplyLocally[0].LastWatchedAt.IsZero() {
		t.Errorf("remote date must not override an existing local watch date, got %v",
			cs.ToApplyLocally[0].LastWatchedAt)
	}
}

func TestReconcileWatchedNeverLowersPlayCount(t *testing.T) {
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 5
	remote := []models.WatchedEntry{{Identity: ident("tt0078748", "Alien", 1979), Plays: 2}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote, nil)
	if len(cs.ToApplyLocally) != 0 {
		t.Errorf("local count 5 vs remote 2 produced changes %v, counts never lower", cs.ToApplyLocally)
	}
}

func TestReconcileWatchedRaisesDivergentPlayCount(t *testing.T) {
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 1
	remote := []models.WatchedEntry{{Identity: ident("tt0078748", "Alien", 1979), Plays: 4}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote, nil)
	if len(cs.ToApplyLocally) != 1 || cs.ToApplyLocally[0].PlayCount != 4 {
		t.Errorf("changes = %v, want count raised to 4", cs.ToApplyLocally)
	}
}

func TestReconcileWatchedDowngradesOnExplicitUnwatch(t *testing.T) {
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 2

	// Absent from the watched snapshot AND explicitly unwatched.
	cs := ReconcileWatched([]models.LocalItem{item}, nil,
		[]models.MediaIdentity{ident("tt0078748", "Alien", 1979)})

	if len(cs.ToPush) != 0 {
		t.Errorf("explicitly unwatched item must not be re-pushed, got %v", cs.ToPush)
	}
	if len(cs.ToApplyLocally) != 1 {
		t.Fatalf("toApplyLocally = %d, want 1", len(cs.ToApplyLocally))
	}
	change := cs.ToApplyLocally[0]
	if change.Watched || change.PlayCount != 0 {
		t.Errorf("change = %+v, want watched=false playCount=0", change)
	}
}

func TestReconcileWatchedSnapshotBeatsStaleUnwatchDelta(t *testing.T) {
	// Present in the watched snapshot: the unwatch delta is outdated.
	item := localItem(1, ident("tt0078748", "Alien", 1979))
	item.Watched = true
	item.WatchCount = 1
	remote := []models.WatchedEntry{{Identity: ident("tt0078748", "Alien", 1979), Plays: 1}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote,
		[]models.MediaIdentity{ident("tt0078748", "Alien", 1979)})
	if !cs.Empty() {
		t.Errorf("change set = %+v, want empty when snapshot still lists the item", cs)
	}
}

func TestReconcileWatchedIMDbPrecedence(t *testing.T) {
	// Same IMDb ID, wildly different title and year: still one match.
	item := localItem(1, ident("tt78748", "Alien: Director's Cut", 2003))
	item.Watched = true
	remote := []models.WatchedEntry{{Identity: ident("tt0078748", "Alien", 1979), Plays: 1}}

	cs := ReconcileWatched([]models.LocalItem{item}, remote, nil)
	if len(cs.ToPush) != 0 {
		t.Errorf("IMDb-equal items must match regardless of title/year, got push %v", cs.ToPush)
	}
}

func TestReconcileWatchedSkipsUnmatchable(t *testing.T) {
	item := localItem(1, models.MediaIdentity{})
	item.Watched = true

	cs := ReconcileWatched([]models.LocalItem{item}, nil, nil)
	if !cs.Empty() {
		t.Errorf("unmatchable item produced changes %+v", cs)
	}
}

func TestReconcileWatchedIdempotent(t *testing.T) {
	// After applying the first pass's outcome on both sides, a second
	// pass yields an empty change set.
	local := []models.LocalItem{
		func() models.LocalItem {
			i := localItem(1, ident("tt0000001", "A", 2000))
			i.Watched = true
			i.WatchCount = 1
			return i
		}(),
		localItem(2, ident("tt0000002", "B", 2001)),
	}
	remote := []models.WatchedEntry{{Identity: ident("tt0000002", "B", 2001), Plays: 2}}

	first := ReconcileWatched(local, remote, nil)
	if first.Empty() {
		t.Fatal("first pass expected changes")
	}

	// Apply: pushes land remotely, local changes land locally.
	remote = append(remote, first.ToPush...)
	for _, change := range first.ToApplyLocally {
		for i := range local {
			if local[i].InternalID == change.InternalID {
				local[i].Watched = change.Watched
				local[i].WatchCount = change.PlayCount
			}
		}
	}

	second := ReconcileWatched(local, remote, nil)
	if !second.Empty() {
		t.Errorf("second pass = %+v, want empty", second)
	}
}

func TestReconcileCollected(t *testing.T) {
	inLibrary := localItem(1, ident("tt0000001", "A", 2000))
	inLibrary.Collection = &models.CollectionInfo{
		Resolution: "hd_1080p",
		AddedAt:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	noMetadata := localItem(2, ident("tt0000002", "B", 2001))

	remote := []models.CollectedEntry{
		{Identity: ident("tt0000003", "C", 2002)},
	}

	cs := ReconcileCollected([]models.LocalItem{inLibrary, noMetadata}, remote, true)

	if len(cs.ToPush) != 1 || !models.Matches(cs.ToPush[0].Identity, inLibrary.Identity) {
		t.Errorf("toPush = %+v, want only the item with collection metadata", cs.ToPush)
	}
	if cs.ToPush[0].Resolution != "hd_1080p" {
		t.Errorf("resolution = %q, want hd_1080p", cs.ToPush[0].Resolution)
	}
	if len(cs.ToRemove) != 1 || !models.Matches(cs.ToRemove[0], remote[0].Identity) {
		t.Errorf("toRemove = %+v, want the remote-only entry", cs.ToRemove)
	}
}

func TestReconcileCollectedRemovalGate(t *testing.T) {
	remote := []models.CollectedEntry{{Identity: ident("tt0000003", "C", 2002)}}

	cs := ReconcileCollected(nil, remote, false)
	if len(cs.ToRemove) != 0 {
		t.Errorf("removal disabled but toRemove = %+v", cs.ToRemove)
	}
}

func TestReconcileRatingsPushOnly(t *testing.T) {
	local := []models.RatingEntry{
		{Identity: ident("tt0000001", "A", 2000), Rating: 8},  // new
		{Identity: ident("tt0000002", "B", 2001), Rating: 7},  // unchanged
		{Identity: ident("tt0000003", "C", 2002), Rating: 9},  // divergent
		{Identity: ident("tt0000004", "D", 2003), Rating: 0},  // unrated, skip
	}
	remote := []models.RatingEntry{
		{Identity: ident("tt0000002", "B", 2001), Rating: 7},
		{Identity: ident("tt0000003", "C", 2002), Rating: 5},
		{Identity: ident("tt0000005", "E", 2004), Rating: 6},
	}

	cs := ReconcileRatings(local, remote)

	if len(cs.ToPush) != 2 {
		t.Fatalf("toPush = %d entries, want 2 (new + divergent)", len(cs.ToPush))
	}
	if cs.ToPush[0].Rating != 8 || cs.ToPush[1].Rating != 9 {
		t.Errorf("toPush = %+v", cs.ToPush)
	}
}
