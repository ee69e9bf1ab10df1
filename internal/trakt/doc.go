// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package trakt implements the HTTP client for the trakt.tv v2 API.
//
// Client covers the sync surface (watched history, collection, ratings,
// playback progress) and the scrobble surface (start, pause, stop).
// All requests pass through a shared rate limiter; idempotent GETs are
// retried with backoff, mutations and scrobble signals are sent exactly
// once. CircuitBreakerClient decorates any API implementation with a
// circuit breaker so a down remote fails fast.
//
// Wire types stay inside this package. Callers exchange the model types
// from internal/models, with IMDb identifiers normalized at the
// boundary in both directions.
package trakt
