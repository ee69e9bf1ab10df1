// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"context"
	"fmt"

	"github.com/jfairbairn/reelsync/internal/cache"
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// defaultPageSize bounds a single remote mutation call.
const defaultPageSize = 100

// Submitter pushes change sets to the remote in fixed-size pages.
//
// Pages within a facet are submitted strictly in order, each waiting
// for the previous page's result. The remote state cache is updated
// optimistically before submission begins; entries the remote rejects
// are rolled back individually, and a transport failure rolls back the
// failed page plus everything unsent while results of already-sent
// pages stand.
type Submitter struct {
	api      trakt.API
	cache    *cache.RemoteState
	pageSize int
}

// NewSubmitter creates a submitter with the given page size.
func NewSubmitter(api trakt.API, remote *cache.RemoteState, pageSize int) *Submitter {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Submitter{api: api, cache: remote, pageSize: pageSize}
}

// FacetResult reports the outcome of submitting one facet's pushes.
type FacetResult struct {
	Pushed   int
	Rejected int
	Removed  int
}

// SubmitWatched pushes watched-history entries.
func (s *Submitter) SubmitWatched(ctx context.Context, entries []models.WatchedEntry) (FacetResult, error) {
	accepted, rejected, err := submitPaged(ctx, entries, s.pageSize, models.FacetWatched,
		func(ctx context.Context, page []models.WatchedEntry) (*trakt.SyncResult, error) {
			return s.api.AddWatchedHistory(ctx, page)
		},
		func(e models.WatchedEntry) models.MediaIdentity { return e.Identity },
		s.cache.AddWatched,
		s.cache.RemoveWatched,
	)
	return FacetResult{Pushed: accepted, Rejected: rejected}, err
}

// SubmitCollected pushes collection additions and, when the change set
// carries removals, collection removals. Additions go first so a remote
// cleanup pass never races its own fresh pushes.
func (s *Submitter) SubmitCollected(ctx context.Context, cs models.CollectedChangeSet) (FacetResult, error) {
	accepted, rejected, err := submitPaged(ctx, cs.ToPush, s.pageSize, models.FacetCollected,
		func(ctx context.Context, page []models.CollectedEntry) (*trakt.SyncResult, error) {
			return s.api.AddCollection(ctx, page)
		},
		func(e models.CollectedEntry) models.MediaIdentity { return e.Identity },
		s.cache.AddCollected,
		s.cache.RemoveCollected,
	)
	result := FacetResult{Pushed: accepted, Rejected: rejected}
	if err != nil {
		return result, err
	}

	removed, err := s.submitCollectionRemovals(ctx, cs.ToRemove)
	result.Removed = removed
	return result, err
}

// submitCollectionRemovals pushes collection removals. Rolling back a
// removal means restoring the entry, so the affected snapshot entries
// are captured before the optimistic removal.
func (s *Submitter) submitCollectionRemovals(ctx context.Context, ids []models.MediaIdentity) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	snapshot, err := s.cache.Collected(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot collection before removal: %w", err)
	}
	restore := func(rollback []models.MediaIdentity) {
		var entries []models.CollectedEntry
		for _, id := range rollback {
			for i := range snapshot {
				if models.Matches(snapshot[i].Identity, id) {
					entries = append(entries, snapshot[i])
					break
				}
			}
		}
		s.cache.AddCollected(entries)
	}

	accepted, _, err := submitPaged(ctx, ids, s.pageSize, models.FacetCollected,
		func(ctx context.Context, page []models.MediaIdentity) (*trakt.SyncResult, error) {
			return s.api.RemoveCollection(ctx, page)
		},
		func(id models.MediaIdentity) models.MediaIdentity { return id },
		func(page []models.MediaIdentity) { s.cache.RemoveCollected(page) },
		restore,
	)
	return accepted, err
}

// SubmitRatings pushes rating entries.
func (s *Submitter) SubmitRatings(ctx context.Context, entries []models.RatingEntry) (FacetResult, error) {
	accepted, rejected, err := submitPaged(ctx, entries, s.pageSize, models.FacetRatings,
		func(ctx context.Context, page []models.RatingEntry) (*trakt.SyncResult, error) {
			return s.api.AddRatings(ctx, page)
		},
		func(e models.RatingEntry) models.MediaIdentity { return e.Identity },
		s.cache.AddRatings,
		s.cache.RemoveRatings,
	)
	return FacetResult{Pushed: accepted, Rejected: rejected}, err
}

// submitPaged is the generic paged-submission loop: optimistic apply,
// strictly sequential pages, per-entry rollback on rejection, page plus
// unsent rollback on transport failure.
func submitPaged[T any](
	ctx context.Context,
	entries []T,
	pageSize int,
	facet models.Facet,
	push func(context.Context, []T) (*trakt.SyncResult, error),
	identity func(T) models.MediaIdentity,
	apply func([]T),
	rollback func([]models.MediaIdentity),
) (accepted, rejected int, err error) {
	if len(entries) == 0 {
		return 0, 0, nil
	}

	apply(entries)

	pages := paginate(entries, pageSize)
	for i, page := range pages {
		result, pushErr := push(ctx, page)
		if pushErr != nil {
			// Failed page and all unsent pages come back out of the
			// cache; prior pages' results stand.
			var unsent []models.MediaIdentity
			for _, remaining := range pages[i:] {
				for _, e := range remaining {
					unsent = append(unsent, identity(e))
				}
			}
			rollback(unsent)

			logging.Error().Err(pushErr).
				Str("facet", string(facet)).
				Int("page", i+1).
				Int("pages", len(pages)).
				Msg("Facet submission aborted on transport failure")
			return accepted, rejected, fmt.Errorf("submit %s page %d/%d: %w", facet, i+1, len(pages), pushErr)
		}

		metrics.PagesSubmitted.WithLabelValues(string(facet)).Inc()
		metrics.EntriesPushed.WithLabelValues(string(facet)).Add(float64(result.Accepted))
		accepted += result.Accepted

		if len(result.NotFound) > 0 {
			metrics.EntriesRejected.WithLabelValues(string(facet)).Add(float64(len(result.NotFound)))
			rejected += len(result.NotFound)
			rollback(result.NotFound)

			logging.Warn().
				Str("facet", string(facet)).
				Int("rejected", len(result.NotFound)).
				Msg("Remote rejected entries in page")
		}
	}

	return accepted, rejected, nil
}

// paginate splits entries into pages of at most size elements,
// preserving order.
func paginate[T any](entries []T, size int) [][]T {
	if len(entries) == 0 {
		return nil
	}
	pages := make([][]T, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		pages = append(pages, entries[start:end])
	}
	return pages
}
