// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package scrobble converts continuous playback position into discrete
// start/pause/stop signals to the remote service.
//
// Monitor owns the single active Session and its state machine. A stop
// at or above the watched-completion threshold (default 85%) commits
// the item to the remote's watched history; the commit is mirrored into
// the watched cache immediately so the next library sync sees it.
// Everything here is best-effort: remote failures never surface to the
// playback source.
package scrobble
