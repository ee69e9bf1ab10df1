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
	"github.com/jfairbairn/reelsync/internal/state"
)

// ResumeSyncer applies remote playback positions to local resume
// storage.
//
// Each pass considers only remote entries paused after the persisted
// watermark, then advances the watermark to the newest processed pause
// time regardless of per-item skips, so one unresolvable item can never
// pin the watermark and force endless reprocessing.
type ResumeSyncer struct {
	cache     *cache.RemoteState
	store     *state.Store
	blocklist *Blocklist

	// delta is subtracted from every computed position so playback
	// restarts slightly before the recorded point.
	delta int
}

// NewResumeSyncer creates a resume synchronizer.
func NewResumeSyncer(remote *cache.RemoteState, store *state.Store, blocklist *Blocklist, deltaSeconds int) *ResumeSyncer {
	return &ResumeSyncer{
		cache:     remote,
		store:     store,
		blocklist: blocklist,
		delta:     deltaSeconds,
	}
}

// Run performs one resume-sync pass over all providers and returns the
// number of resume positions written.
func (r *ResumeSyncer) Run(ctx context.Context, providers []LibraryProvider) (int, error) {
	watermark, err := r.store.PlaybackWatermark()
	if err != nil {
		return 0, fmt.Errorf("read playback watermark: %w", err)
	}

	entries, err := r.cache.Playback(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch playback positions: %w", err)
	}

	applied := 0
	latest := watermark

	for _, provider := range providers {
		items, err := provider.ListAll(ctx)
		if err != nil {
			logging.Warn().Err(err).Str("provider", provider.Name()).
				Msg("Skipping provider in resume sync")
			continue
		}

		for _, entry := range entries {
			if !entry.PausedAt.After(watermark) {
				continue
			}
			if entry.PausedAt.After(latest) {
				latest = entry.PausedAt
			}

			if r.applyOne(ctx, provider, items, entry) {
				applied++
			}
		}
	}

	if latest.After(watermark) {
		if err := r.store.SetPlaybackWatermark(latest); err != nil {
			return applied, fmt.Errorf("advance playback watermark: %w", err)
		}
	}

	if applied > 0 {
		logging.Info().Int("applied", applied).Time("watermark", latest).
			Msg("Resume positions applied")
	}
	return applied, nil
}

// applyOne resolves one remote playback entry against one provider's
// snapshot and writes the resume position when it changed. Returns true
// when a write happened.
func (r *ResumeSyncer) applyOne(ctx context.Context, provider LibraryProvider, items []models.LocalItem, entry models.PlaybackEntry) bool {
	item := findLocal(items, entry.Identity)
	if item == nil {
		metrics.ResumeItemsSkipped.WithLabelValues("unmatched").Inc()
		return false
	}
	if item.DurationSeconds <= 0 {
		metrics.ResumeItemsSkipped.WithLabelValues("unknown_duration").Inc()
		logging.Warn().Str("item", item.Identity.String()).
			Msg("Cannot compute resume position without a known duration")
		return false
	}
	if r.blocklist.Blocked(item.FilePath) {
		metrics.ResumeItemsSkipped.WithLabelValues("blocked").Inc()
		return false
	}

	seconds := resumeSeconds(item.DurationSeconds, entry.Progress, r.delta)
	if seconds == item.ResumeSeconds {
		metrics.ResumeItemsSkipped.WithLabelValues("unchanged").Inc()
		return false
	}

	if err := provider.SetResumePosition(ctx, item.InternalID, seconds); err != nil {
		logging.Warn().Err(err).Str("item", item.Identity.String()).
			Msg("Failed to store resume position")
		return false
	}

	metrics.ResumePositionsApplied.Inc()
	logging.Debug().
		Str("item", item.Identity.String()).
		Int("seconds", seconds).
		Float64("progress", entry.Progress).
		Msg("Resume position updated")
	return true
}

// resumeSeconds converts a remote progress percentage into an absolute
// local position, backing off by delta seconds and flooring at zero.
func resumeSeconds(durationSeconds int, progressPercent float64, delta int) int {
	seconds := int(float64(durationSeconds)*(progressPercent/100)) - delta
	if seconds < 0 {
		return 0
	}
	return seconds
}
