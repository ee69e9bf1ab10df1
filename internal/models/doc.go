// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

/*
Package models defines the data structures shared across Reelsync.

It is the single source of truth for the sync engine's vocabulary:

  - MediaIdentity: how a movie is identified locally and remotely, plus the
    canonical matching rules (IMDb precedence, title+year fallback)
  - LocalItem: a snapshot of one entry in the local video library
  - WatchedEntry / CollectedEntry / RatingEntry / PlaybackEntry: the remote
    service's view of each sync facet
  - ChangeSet: the output of one reconciliation pass for one facet

Identity matching lives here rather than in the sync package so that both
the remote state cache and the reconciler compare identities through the
same function without an import cycle.
*/
package models
