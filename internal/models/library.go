// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package models

import "time"

// CollectionInfo describes the media-file attributes reported to the
// remote collection facet. Fields left empty are omitted from the sync
// payload; the remote treats them as unknown.
type CollectionInfo struct {
	MediaType     string    `json:"media_type,omitempty"` // digital, bluray, dvd, ...
	Resolution    string    `json:"resolution,omitempty"` // hd_1080p, uhd_4k, ...
	AudioCodec    string    `json:"audio,omitempty"`      // dolby_digital, dts, aac, ...
	AudioChannels string    `json:"audio_channels,omitempty"`
	Is3D          bool      `json:"3d"`
	AddedAt       time.Time `json:"collected_at"`
}

// LocalItem is a read-only snapshot of one entry in the local video
// library, produced by a LibraryProvider. The sync engine never mutates a
// LocalItem in place; local state changes always go back through the
// provider's mutation calls.
type LocalItem struct {
	Identity MediaIdentity

	// InternalID is the provider's numeric key for this item, used for
	// mutation calls (SetWatched, SetResumePosition).
	InternalID int

	Watched       bool
	WatchCount    int
	LastWatchedAt time.Time // zero when never watched or unknown

	// DurationSeconds is the runtime of the local file. Zero means
	// unknown; items with unknown duration are skipped by resume sync
	// because an absolute position cannot be computed from a percentage.
	DurationSeconds int

	Collection *CollectionInfo

	// ResumeSeconds is the currently stored resume position. Zero means
	// no resume point.
	ResumeSeconds int

	FilePath string
}
