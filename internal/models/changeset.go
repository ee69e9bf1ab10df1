// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package models

import "time"

// Facet is one independent category of synchronized state.
type Facet string

// Sync facets. Watched, collected and ratings are reconciled by the
// library sync; playback is handled by the resume synchronizer.
const (
	FacetWatched   Facet = "watched"
	FacetCollected Facet = "collected"
	FacetRatings   Facet = "ratings"
	FacetPlayback  Facet = "playback"
)

// LocalWatchedChange describes a watched-state mutation the reconciler
// wants applied to the local library. The engine never downgrades local
// watched state except when the remote explicitly reports the item
// unwatched, in which case Watched is false and PlayCount is zero.
type LocalWatchedChange struct {
	InternalID int
	Watched    bool
	PlayCount  int

	// LastWatchedAt carries the remote watch date. It is applied only
	// when the local item has no watch date of its own.
	LastWatchedAt time.Time
}

// WatchedChangeSet is the output of one watched-facet reconciliation
// pass. Created fresh per pass, consumed immediately by the submitter,
// never persisted.
type WatchedChangeSet struct {
	ToPush         []WatchedEntry
	ToApplyLocally []LocalWatchedChange
}

// Empty reports whether the change set contains no work.
func (cs WatchedChangeSet) Empty() bool {
	return len(cs.ToPush) == 0 && len(cs.ToApplyLocally) == 0
}

// CollectedChangeSet is the output of one collected-facet reconciliation
// pass. ToRemove is populated only when remote cleanup is enabled and
// exactly one library provider is registered.
type CollectedChangeSet struct {
	ToPush   []CollectedEntry
	ToRemove []MediaIdentity
}

// Empty reports whether the change set contains no work.
func (cs CollectedChangeSet) Empty() bool {
	return len(cs.ToPush) == 0 && len(cs.ToRemove) == 0
}

// RatingsChangeSet is the output of one ratings-facet reconciliation
// pass. Ratings are push-only; remote ratings are never pulled back into
// local state.
type RatingsChangeSet struct {
	ToPush []RatingEntry
}

// Empty reports whether the change set contains no work.
func (cs RatingsChangeSet) Empty() bool {
	return len(cs.ToPush) == 0
}
