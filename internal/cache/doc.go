// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package cache maintains an in-memory snapshot of the remote account's
// state: watched history, collection, ratings and playback positions.
//
// The reconciler compares the entire local library against these
// snapshots, so one sync pass costs one remote fetch per facet rather
// than one per item. After a successful push the submitter updates the
// snapshots optimistically, keeping them accurate for the TTL window
// without a re-fetch. Diffing successive watched snapshots also yields
// the unwatched delta: items the user explicitly unwatched remotely,
// which is the only signal allowed to downgrade local watched state.
package cache
