// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package models

import "time"

// WatchedEntry is the remote service's record of a watched movie.
type WatchedEntry struct {
	Identity      MediaIdentity `json:"movie"`
	Plays         int           `json:"plays"`
	LastWatchedAt time.Time     `json:"last_watched_at"`
}

// CollectedEntry is the remote service's record of a collected movie.
type CollectedEntry struct {
	Identity      MediaIdentity `json:"movie"`
	CollectedAt   time.Time     `json:"collected_at"`
	MediaType     string        `json:"media_type,omitempty"`
	Resolution    string        `json:"resolution,omitempty"`
	AudioCodec    string        `json:"audio,omitempty"`
	AudioChannels string        `json:"audio_channels,omitempty"`
	Is3D          bool          `json:"3d"`
}

// RatingEntry is the remote service's record of a rated movie.
// Rating is on the remote's 1-10 scale.
type RatingEntry struct {
	Identity MediaIdentity `json:"movie"`
	Rating   int           `json:"rating"`
	RatedAt  time.Time     `json:"rated_at"`
}

// PlaybackEntry is the remote service's record of an in-progress
// (paused) playback, expressed as a percentage of runtime.
type PlaybackEntry struct {
	Identity MediaIdentity `json:"movie"`
	Type     string        `json:"type"` // movie or episode
	Progress float64       `json:"progress"`
	PausedAt time.Time     `json:"paused_at"`
}
