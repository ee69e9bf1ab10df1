// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package metrics provides Prometheus instrumentation for the sync and
// scrobble engine. All collectors are registered on the default registry
// and exposed via the ops server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Library sync metrics

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsync_sync_duration_seconds",
			Help:    "Duration of one reconciliation pass per facet",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"facet"},
	)

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_sync_runs_total",
			Help: "Total library sync cycles by outcome (completed, skipped, failed)",
		},
		[]string{"outcome"},
	)

	PagesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_pages_submitted_total",
			Help: "Total pages submitted to the remote API per facet",
		},
		[]string{"facet"},
	)

	EntriesPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_entries_pushed_total",
			Help: "Total entries accepted by the remote API per facet",
		},
		[]string{"facet"},
	)

	EntriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_entries_rejected_total",
			Help: "Total entries rejected (not found) by the remote API per facet",
		},
		[]string{"facet"},
	)

	EntriesAppliedLocally = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_entries_applied_locally_total",
			Help: "Total remote-sourced changes applied to the local library per facet",
		},
		[]string{"facet"},
	)

	// Scrobble metrics

	ScrobbleSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_scrobble_signals_total",
			Help: "Scrobble signals sent by type (start, pause, stop) and outcome",
		},
		[]string{"signal", "outcome"},
	)

	// Resume sync metrics

	ResumePositionsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelsync_resume_positions_applied_total",
			Help: "Resume positions written to the local library",
		},
	)

	ResumeItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_resume_items_skipped_total",
			Help: "Resume entries skipped by reason (unmatched, no_duration, blocked, stale)",
		},
		[]string{"reason"},
	)

	// Remote state cache metrics

	CacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_cache_refreshes_total",
			Help: "Remote facet snapshot refreshes per facet",
		},
		[]string{"facet"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_cache_hits_total",
			Help: "Facet reads served from a fresh snapshot without a remote fetch",
		},
		[]string{"facet"},
	)

	// Remote API client metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsync_api_request_duration_seconds",
			Help:    "Duration of remote API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_api_request_errors_total",
			Help: "Remote API request failures by endpoint",
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
