// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/models"
)

// ReconcileWatched diffs the local library against the remote watched
// history and produces the watched-facet change set.
//
//   - Local watched, missing remotely: pushed to the remote. A zero
//     local play count is floored to one on both sides.
//   - Local unwatched, present remotely: the local flag and play count
//     are raised to match remote. The remote watch date is carried only
//     when the local item has none.
//   - Both watched with a higher remote play count: local count raised.
//     Counts are never lowered from this path.
//   - Local watched, listed in the unwatched delta and absent from the
//     watched snapshot: local state downgraded to unwatched, count 0.
//     This is the only downgrade path; it requires the remote's explicit
//     unwatch signal, not mere absence.
func ReconcileWatched(local []models.LocalItem, remote []models.WatchedEntry, unwatched []models.MediaIdentity) models.WatchedChangeSet {
	var cs models.WatchedChangeSet

	for i := range local {
		item := local[i]
		reconcileItem(item, func() {
			if !item.Identity.Matchable() {
				return
			}

			match := findWatched(remote, item.Identity)

			if match == nil {
				if item.Watched && inIdentitySet(unwatched, item.Identity) {
					cs.ToApplyLocally = append(cs.ToApplyLocally, models.LocalWatchedChange{
						InternalID: item.InternalID,
						Watched:    false,
						PlayCount:  0,
					})
					return
				}
				if item.Watched {
					plays := item.WatchCount
					if plays < 1 {
						// Push floors the count at one play; raise the local
						// count in the same pass so the next reconciliation
						// finds both sides already in agreement.
						plays = 1
						cs.ToApplyLocally = append(cs.ToApplyLocally, models.LocalWatchedChange{
							InternalID: item.InternalID,
							Watched:    true,
							PlayCount:  plays,
						})
					}
					cs.ToPush = append(cs.ToPush, models.WatchedEntry{
						Identity:      item.Identity,
						Plays:         plays,
						LastWatchedAt: item.LastWatchedAt,
					})
				}
				return
			}

			if !item.Watched {
				change := models.LocalWatchedChange{
					InternalID: item.InternalID,
					Watched:    true,
					PlayCount:  match.Plays,
				}
				if item.LastWatchedAt.IsZero() {
					change.LastWatchedAt = match.LastWatchedAt
				}
				cs.ToApplyLocally = append(cs.ToApplyLocally, change)
				return
			}

			if match.Plays > item.WatchCount {
				cs.ToApplyLocally = append(cs.ToApplyLocally, models.LocalWatchedChange{
					InternalID: item.InternalID,
					Watched:    true,
					PlayCount:  match.Plays,
				})
			}
		})
	}

	return cs
}

// ReconcileCollected diffs the local library against the remote
// collection. Local items with collection metadata and no remote match
// are pushed. When allowRemove is set, remote entries with no local
// match are queued for removal.
func ReconcileCollected(local []models.LocalItem, remote []models.CollectedEntry, allowRemove bool) models.CollectedChangeSet {
	var cs models.CollectedChangeSet

	for i := range local {
		item := local[i]
		reconcileItem(item, func() {
			if item.Collection == nil || !item.Identity.Matchable() {
				return
			}
			if findCollected(remote, item.Identity) != nil {
				return
			}
			cs.ToPush = append(cs.ToPush, models.CollectedEntry{
				Identity:      item.Identity,
				CollectedAt:   item.Collection.AddedAt,
				MediaType:     item.Collection.MediaType,
				Resolution:    item.Collection.Resolution,
				AudioCodec:    item.Collection.AudioCodec,
				AudioChannels: item.Collection.AudioChannels,
				Is3D:          item.Collection.Is3D,
			})
		})
	}

	if allowRemove {
		for _, entry := range remote {
			if findLocal(local, entry.Identity) == nil {
				cs.ToRemove = append(cs.ToRemove, entry.Identity)
			}
		}
	}

	return cs
}

// ReconcileRatings diffs locally tracked ratings against the remote
// ratings. Push-only: an unrated or divergently rated entry is pushed;
// remote ratings are never pulled back into local state. Local ratings
// of zero mean "unrated" and are skipped.
func ReconcileRatings(local []models.RatingEntry, remote []models.RatingEntry) models.RatingsChangeSet {
	var cs models.RatingsChangeSet

	for _, r := range local {
		if r.Rating == 0 || !r.Identity.Matchable() {
			continue
		}
		match := findRated(remote, r.Identity)
		if match != nil && match.Rating == r.Rating {
			continue
		}
		cs.ToPush = append(cs.ToPush, r)
	}

	return cs
}

// reconcileItem runs one item's evaluation behind a recover boundary so
// a single malformed item cannot abort the facet.
func reconcileItem(item models.LocalItem, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Int("internal_id", item.InternalID).
				Str("item", item.Identity.String()).
				Interface("panic", r).
				Msg("Skipping item after reconciliation panic")
		}
	}()
	fn()
}

func findWatched(entries []models.WatchedEntry, id models.MediaIdentity) *models.WatchedEntry {
	for i := range entries {
		if models.Matches(id, entries[i].Identity) {
			return &entries[i]
		}
	}
	return nil
}

func findCollected(entries []models.CollectedEntry, id models.MediaIdentity) *models.CollectedEntry {
	for i := range entries {
		if models.Matches(id, entries[i].Identity) {
			return &entries[i]
		}
	}
	return nil
}

func findRated(entries []models.RatingEntry, id models.MediaIdentity) *models.RatingEntry {
	for i := range entries {
		if models.Matches(id, entries[i].Identity) {
			return &entries[i]
		}
	}
	return nil
}

func findLocal(items []models.LocalItem, id models.MediaIdentity) *models.LocalItem {
	for i := range items {
		if items[i].Identity.Matchable() && models.Matches(items[i].Identity, id) {
			return &items[i]
		}
	}
	return nil
}

func inIdentitySet(set []models.MediaIdentity, id models.MediaIdentity) bool {
	for _, s := range set {
		if models.Matches(id, s) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
