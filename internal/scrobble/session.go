// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package scrobble

import (
	"time"

	"github.com/google/uuid"

	"github.com/jfairbairn/reelsync/internal/models"
)

// State is the scrobble session lifecycle state.
type State int

// Session states. Transitions: Idle -> Started -> {Paused <-> Started}
// -> Stopped -> Idle. Stopped is transient; a finalized session is
// discarded, there is no residual state.
const (
	Idle State = iota
	Started
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Started:
		return "started"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Session tracks one active playback. At most one session is live per
// monitor; starting playback of a different item finalizes the current
// session through the stop path first.
type Session struct {
	ID         string
	Item       models.MediaIdentity
	InternalID int

	// DurationSeconds is the effective runtime used for progress
	// computation: the player-reported duration, or the library item's
	// stored runtime when the player reports zero.
	DurationSeconds float64

	State        State
	LastProgress float64
	InPlaylist   bool
	StartedAt    time.Time
}

// newSession creates a Started session for the given item.
func newSession(item models.MediaIdentity, internalID int, durationSeconds float64, inPlaylist bool, now time.Time) *Session {
	return &Session{
		ID:              uuid.NewString(),
		Item:            item,
		InternalID:      internalID,
		DurationSeconds: durationSeconds,
		State:           Started,
		InPlaylist:      inPlaylist,
		StartedAt:       now,
	}
}

// progress converts an absolute position into a percentage of the
// session's duration, clamped to [0, 100]. A session with unknown
// duration always reports zero.
func (s *Session) progress(positionSeconds float64) float64 {
	if s.DurationSeconds <= 0 {
		return 0
	}
	pct := positionSeconds / s.DurationSeconds * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
