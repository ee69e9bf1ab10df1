// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package scrobble

import (
	"context"
	"sync"
	"time"

	"github.com/jfairbairn/reelsync/internal/cache"
	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// RatePrompter asks the user to rate a just-watched item on the 1-10
// scale. Returning 0 means "remove any existing rating"; an error means
// the prompt was dismissed or unavailable and no rating change happens.
type RatePrompter interface {
	RateMovie(ctx context.Context, item models.MediaIdentity) (int, error)
}

// Monitor drives the scrobble state machine for the single active
// playback session.
//
// All signal failures are logged and swallowed: scrobbling is
// best-effort and must never block or fail local playback. The one
// state the remote owns is the watched-history commit on stop; when the
// remote confirms it (action "scrobble") the watched cache is updated
// immediately so the next library sync does not re-push the play.
//
// Callbacks are serialized by an internal mutex; the playback source
// may deliver position events from any goroutine.
type Monitor struct {
	api      trakt.API
	cache    *cache.RemoteState
	cfg      *config.ScrobbleConfig
	prompter RatePrompter
	now      func() time.Time

	mu      sync.Mutex
	session *Session
}

// NewMonitor creates a scrobble monitor. prompter may be nil, in which
// case rating prompts are disabled regardless of configuration.
func NewMonitor(api trakt.API, remote *cache.RemoteState, cfg *config.ScrobbleConfig, prompter RatePrompter) *Monitor {
	return &Monitor{
		api:      api,
		cache:    remote,
		cfg:      cfg,
		prompter: prompter,
		now:      time.Now,
	}
}

// Start begins a scrobble session for the item. A live session for a
// different (or the same) item is finalized through the stop path
// first, so at most one session ever exists.
//
// durationSeconds is the player-reported runtime; when zero, the
// library runtime fallback is used. positionSeconds is the starting
// playback position (non-zero when resuming a partially watched file).
func (m *Monitor) Start(ctx context.Context, item models.MediaIdentity, internalID int, durationSeconds, fallbackDuration, positionSeconds float64, inPlaylist bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.finalizeLocked(ctx, m.session.LastProgress)
	}

	duration := durationSeconds
	if duration <= 0 {
		duration = fallbackDuration
	}
	if duration <= 0 {
		logging.Warn().Str("item", item.String()).
			Msg("Cannot scrobble without a known duration")
		return
	}

	m.session = newSession(item, internalID, duration, inPlaylist, m.now())
	progress := m.session.progress(positionSeconds)
	m.session.LastProgress = progress

	m.signal(ctx, "start", func() (*trakt.ScrobbleResult, error) {
		return m.api.StartScrobble(ctx, item, progress)
	})
	logging.Debug().
		Str("session_id", m.session.ID).
		Str("item", item.String()).
		Float64("progress", progress).
		Msg("Scrobble session started")
}

// Progress records a playback position sample. No signal is sent; a
// paused session returning to playback silently re-enters Started.
func (m *Monitor) Progress(positionSeconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	m.session.LastProgress = m.session.progress(positionSeconds)
	if m.session.State == Paused {
		m.session.State = Started
	}
}

// Pause reports a playback pause at the given position.
func (m *Monitor) Pause(ctx context.Context, positionSeconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.State == Paused {
		return
	}

	progress := m.session.progress(positionSeconds)
	m.session.LastProgress = progress
	m.session.State = Paused

	item := m.session.Item
	m.signal(ctx, "pause", func() (*trakt.ScrobbleResult, error) {
		return m.api.PauseScrobble(ctx, item, progress)
	})
}

// Stop finalizes the session at the given position. At or above the
// watched threshold the stop signal commits the item to watched
// history; below it, only a pause signal is sent so the remote keeps
// the in-progress position.
func (m *Monitor) Stop(ctx context.Context, positionSeconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	m.finalizeLocked(ctx, m.session.progress(positionSeconds))
}

// Status reports the current session state for the ops surface. Returns
// Idle and nil when no session is live.
func (m *Monitor) Status() (State, *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Idle, nil
	}
	snapshot := *m.session
	return snapshot.State, &snapshot
}

// finalizeLocked runs the Stopped transition and discards the session.
// Caller holds the mutex.
func (m *Monitor) finalizeLocked(ctx context.Context, progress float64) {
	session := m.session
	m.session = nil
	session.State = Stopped

	if progress >= m.cfg.WatchedPercent {
		result := m.signal(ctx, "stop", func() (*trakt.ScrobbleResult, error) {
			return m.api.StopScrobble(ctx, session.Item, progress)
		})
		if result == nil || result.Action != trakt.ActionScrobble {
			return
		}

		// The remote committed the watch; reflect it in the cache so the
		// next library sync sees it without a re-fetch. The commit also
		// clears the item's remote playback entry, so drop it from the
		// cache too or a resume sync inside the TTL would re-apply a
		// stale resume point.
		m.cache.AppendWatchedPlay(session.Item, m.now())
		m.cache.RemovePlayback(session.Item)
		logging.Info().
			Str("item", session.Item.String()).
			Float64("progress", progress).
			Msg("Playback committed to watched history")

		m.maybePromptRating(ctx, session)
		return
	}

	item := session.Item
	m.signal(ctx, "pause", func() (*trakt.ScrobbleResult, error) {
		return m.api.PauseScrobble(ctx, item, progress)
	})
}

// maybePromptRating runs the post-watch rating prompt when enabled and
// not excluded by the playlist setting.
func (m *Monitor) maybePromptRating(ctx context.Context, session *Session) {
	if m.prompter == nil || !m.cfg.RateOnWatched {
		return
	}
	if session.InPlaylist && !m.cfg.RateInPlaylists {
		return
	}

	rating, err := m.prompter.RateMovie(ctx, session.Item)
	if err != nil {
		logging.Debug().Err(err).Str("item", session.Item.String()).
			Msg("Rating prompt dismissed")
		return
	}

	if rating == 0 {
		if _, err := m.api.RemoveRatings(ctx, []models.MediaIdentity{session.Item}); err != nil {
			logging.Warn().Err(err).Str("item", session.Item.String()).
				Msg("Failed to remove rating")
			return
		}
		m.cache.RemoveRatings([]models.MediaIdentity{session.Item})
		return
	}

	entry := models.RatingEntry{Identity: session.Item, Rating: rating, RatedAt: m.now()}
	if _, err := m.api.AddRatings(ctx, []models.RatingEntry{entry}); err != nil {
		logging.Warn().Err(err).Str("item", session.Item.String()).
			Msg("Failed to submit rating")
		return
	}
	m.cache.AddRatings([]models.RatingEntry{entry})
}

// signal sends one scrobble signal, logging and swallowing failures.
func (m *Monitor) signal(ctx context.Context, name string, send func() (*trakt.ScrobbleResult, error)) *trakt.ScrobbleResult {
	result, err := send()
	if err != nil {
		metrics.ScrobbleSignals.WithLabelValues(name, "error").Inc()
		logging.Warn().Err(err).Str("signal", name).
			Msg("Scrobble signal failed, continuing")
		return nil
	}
	metrics.ScrobbleSignals.WithLabelValues(name, "ok").Inc()
	return result
}
