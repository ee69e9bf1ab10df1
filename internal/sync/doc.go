// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package sync implements the library reconciliation engine.
//
// A sync cycle runs once per facet (watched history, collection,
// ratings): the reconciler diffs the local library snapshot against the
// remote state cache and produces a change set, which the submitter
// pushes to the remote in fixed-size pages with optimistic cache
// updates. Facets are independent and submit concurrently; pages within
// one facet are strictly sequential.
//
// The playback-resume synchronizer runs on its own cadence. It applies
// remote resume positions to local items, gated by a persisted
// watermark so each remote pause event is processed at most once.
//
// Manager owns the cycle: it serializes sync runs (a re-entrant request
// while one is in flight is dropped, not queued), fans out facets, and
// reports a per-run summary.
package sync
