// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfairbairn/reelsync/internal/cache"
	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/state"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// ErrSyncInProgress is returned when a sync request arrives while a
// prior run is still executing. The request is dropped, not queued.
var ErrSyncInProgress = fmt.Errorf("sync already in progress")

// Summary reports the outcome of one library sync run.
type Summary struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	Facets         map[models.Facet]FacetResult
	AppliedLocally int
	Failed         []models.Facet
}

// Manager orchestrates library and playback synchronization across all
// registered providers.
//
// One sync runs at a time: a re-entrant SyncLibrary call while a run is
// in flight returns ErrSyncInProgress immediately. Within a run the
// three library facets reconcile and submit concurrently; they touch
// independent remote resources and share only the remote state cache,
// which serializes internally.
type Manager struct {
	providers []LibraryProvider
	api       trakt.API
	cache     *cache.RemoteState
	store     *state.Store
	submitter *Submitter
	resume    *ResumeSyncer
	blocklist *Blocklist
	cfg       *config.SyncConfig

	syncMu sync.Mutex // serializes sync runs; TryLock drops re-entrant requests

	mu          sync.RWMutex
	lastSync    time.Time
	lastSummary *Summary
}

// NewManager wires the sync engine together.
func NewManager(providers []LibraryProvider, api trakt.API, remote *cache.RemoteState, store *state.Store, cfg *config.SyncConfig) *Manager {
	blocklist := NewBlocklist(cfg.BlockedFolders, cfg.BlockedFilenames)
	return &Manager{
		providers: providers,
		api:       api,
		cache:     remote,
		store:     store,
		submitter: NewSubmitter(api, remote, cfg.BatchSize),
		resume:    NewResumeSyncer(remote, store, blocklist, cfg.ResumeDelta),
		blocklist: blocklist,
		cfg:       cfg,
	}
}

// LastSummary returns the most recent library sync summary, or nil when
// no run has completed yet.
func (m *Manager) LastSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSummary
}

// LastSync returns when the last library sync completed.
func (m *Manager) LastSync() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// SyncLibrary runs one full library reconciliation: watched history,
// collection and ratings, across every provider.
func (m *Manager) SyncLibrary(ctx context.Context) (*Summary, error) {
	if !m.syncMu.TryLock() {
		metrics.SyncRuns.WithLabelValues("dropped").Inc()
		logging.Warn().Msg("Library sync requested while one is running, dropping request")
		return nil, ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Facets:    make(map[models.Facet]FacetResult),
	}
	log := logging.With().Str("run_id", summary.RunID).Logger()
	log.Info().Int("providers", len(m.providers)).Msg("Library sync started")

	var (
		resultMu sync.Mutex
		wg       sync.WaitGroup
	)
	fail := func(facet models.Facet, err error) {
		resultMu.Lock()
		summary.Failed = append(summary.Failed, facet)
		resultMu.Unlock()
		log.Error().Err(err).Str("facet", string(facet)).Msg("Facet sync failed")
	}
	record := func(facet models.Facet, r FacetResult, applied int) {
		resultMu.Lock()
		prev := summary.Facets[facet]
		summary.Facets[facet] = FacetResult{
			Pushed:   prev.Pushed + r.Pushed,
			Rejected: prev.Rejected + r.Rejected,
			Removed:  prev.Removed + r.Removed,
		}
		summary.AppliedLocally += applied
		resultMu.Unlock()
	}

	runFacet := func(facet models.Facet, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			if err := fn(); err != nil {
				fail(facet, err)
			}
			metrics.SyncDuration.WithLabelValues(string(facet)).Observe(time.Since(start).Seconds())
		}()
	}

	runFacet(models.FacetWatched, func() error { return m.syncWatched(ctx, record) })
	runFacet(models.FacetCollected, func() error { return m.syncCollected(ctx, record) })
	runFacet(models.FacetRatings, func() error { return m.syncRatings(ctx, record) })
	wg.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	outcome := "success"
	if len(summary.Failed) > 0 {
		outcome = "partial_failure"
	}
	metrics.SyncRuns.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.lastSync = time.Now()
	m.lastSummary = summary
	m.mu.Unlock()

	log.Info().
		Dur("duration", summary.Duration).
		Int("applied_locally", summary.AppliedLocally).
		Int("failed_facets", len(summary.Failed)).
		Msg("Library sync finished")
	return summary, nil
}

// syncWatched runs the watched facet for every provider. The unwatched
// delta is consumed once per cycle and shared by all providers; it is
// requeued into the cache when the cycle aborts before reconciling, so
// an observed remote unwatch is never lost to a transient failure. Push
// failures do not stop the pull side: local applies happen first, and
// remaining providers still reconcile.
func (m *Manager) syncWatched(ctx context.Context, record func(models.Facet, FacetResult, int)) error {
	var (
		unwatched []models.MediaIdentity
		consumed  bool
		pushErr   error
	)
	abort := func(err error) error {
		if consumed {
			m.cache.RequeueUnwatched(unwatched)
		}
		return err
	}

	for _, provider := range m.providers {
		items, err := m.listFiltered(ctx, provider)
		if err != nil {
			return abort(err)
		}

		// Re-read per provider: the optimistic updates from the previous
		// provider's pushes keep later providers from duplicating them.
		remote, err := m.cache.Watched(ctx)
		if err != nil {
			return abort(fmt.Errorf("watched snapshot: %w", err))
		}

		// Consume after the first snapshot read of the cycle: a refresh
		// is what surfaces remote unwatch events into the delta.
		if !consumed {
			unwatched = m.cache.UnwatchedDelta()
			consumed = true
		}

		cs := ReconcileWatched(items, remote, unwatched)
		if cs.Empty() {
			continue
		}

		applied := m.applyWatchedChanges(ctx, provider, cs.ToApplyLocally)
		result, err := m.submitter.SubmitWatched(ctx, cs.ToPush)
		record(models.FacetWatched, result, applied)
		if err != nil && pushErr == nil {
			pushErr = err
		}
	}
	return pushErr
}

// applyWatchedChanges issues provider mutations for the pull side of
// the watched facet. Per-item failures are logged and skipped.
func (m *Manager) applyWatchedChanges(ctx context.Context, provider LibraryProvider, changes []models.LocalWatchedChange) int {
	applied := 0
	for _, change := range changes {
		if err := provider.SetWatched(ctx, change.InternalID, change.Watched, change.PlayCount); err != nil {
			logging.Warn().Err(err).
				Str("provider", provider.Name()).
				Int("internal_id", change.InternalID).
				Msg("Failed to apply watched state locally")
			continue
		}
		if !change.LastWatchedAt.IsZero() {
			if err := provider.SetLastWatched(ctx, change.InternalID, change.LastWatchedAt); err != nil {
				logging.Warn().Err(err).
					Str("provider", provider.Name()).
					Int("internal_id", change.InternalID).
					Msg("Failed to apply watch date locally")
			}
		}
		metrics.EntriesAppliedLocally.WithLabelValues(string(models.FacetWatched)).Inc()
		applied++
	}
	return applied
}

// syncCollected runs the collection facet. Remote removal is gated on
// the keep-clean flag and on exactly one registered provider, so a
// second catalogue feeding the same account can never be clobbered.
func (m *Manager) syncCollected(ctx context.Context, record func(models.Facet, FacetResult, int)) error {
	allowRemove := m.cfg.KeepRemoteClean && len(m.providers) == 1

	for _, provider := range m.providers {
		items, err := m.listFiltered(ctx, provider)
		if err != nil {
			return err
		}
		remote, err := m.cache.Collected(ctx)
		if err != nil {
			return fmt.Errorf("collected snapshot: %w", err)
		}

		cs := ReconcileCollected(items, remote, allowRemove)
		if cs.Empty() {
			continue
		}

		result, err := m.submitter.SubmitCollected(ctx, cs)
		record(models.FacetCollected, result, 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// syncRatings runs the ratings facet for providers that track ratings.
func (m *Manager) syncRatings(ctx context.Context, record func(models.Facet, FacetResult, int)) error {
	for _, provider := range m.providers {
		rp, ok := provider.(RatingsProvider)
		if !ok {
			continue
		}

		local, err := rp.ListRatings(ctx)
		if err != nil {
			return fmt.Errorf("list local ratings (%s): %w", provider.Name(), err)
		}
		remote, err := m.cache.Ratings(ctx)
		if err != nil {
			return fmt.Errorf("ratings snapshot: %w", err)
		}

		cs := ReconcileRatings(local, remote)
		if cs.Empty() {
			continue
		}

		result, err := m.submitter.SubmitRatings(ctx, cs.ToPush)
		record(models.FacetRatings, result, 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// SyncPlayback runs one playback-resume pass.
func (m *Manager) SyncPlayback(ctx context.Context) (int, error) {
	if !m.syncMu.TryLock() {
		metrics.SyncRuns.WithLabelValues("dropped").Inc()
		return 0, ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	start := time.Now()
	applied, err := m.resume.Run(ctx, m.providers)
	metrics.SyncDuration.WithLabelValues(string(models.FacetPlayback)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncRuns.WithLabelValues("partial_failure").Inc()
		return applied, err
	}
	metrics.SyncRuns.WithLabelValues("success").Inc()
	return applied, nil
}

// listFiltered returns the provider's snapshot minus blocked paths and
// unmatchable identities.
func (m *Manager) listFiltered(ctx context.Context, provider LibraryProvider) ([]models.LocalItem, error) {
	items, err := provider.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list library (%s): %w", provider.Name(), err)
	}

	if m.blocklist.Empty() {
		return items, nil
	}

	filtered := items[:0:0]
	for _, item := range items {
		if m.blocklist.Blocked(item.FilePath) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}
