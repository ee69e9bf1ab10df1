// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package library provides built-in local catalogue providers. The sync
// engine accepts any implementation of sync.LibraryProvider; this
// package ships the JSON-file-backed one used by the standalone daemon.
package library
