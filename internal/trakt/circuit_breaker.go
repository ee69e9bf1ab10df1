// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package trakt

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
)

// CircuitBreakerClient wraps an API implementation with a circuit
// breaker so a flapping or down remote fails fast instead of stalling
// every sync cycle and scrobble signal behind full timeouts.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped client directly.
type CircuitBreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// Ensure CircuitBreakerClient implements API.
var _ API = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps api with a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests,
// and probes recovery after 2 minutes.
func NewCircuitBreakerClient(api API) *CircuitBreakerClient {
	const cbName = "trakt-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: cbName}
}

// stateToFloat maps breaker states onto the metric gauge encoding.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// execute runs fn through the breaker, preserving its typed result.
func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (c *CircuitBreakerClient) FetchWatched(ctx context.Context) ([]models.WatchedEntry, error) {
	return execute(c.cb, func() ([]models.WatchedEntry, error) { return c.api.FetchWatched(ctx) })
}

func (c *CircuitBreakerClient) FetchCollected(ctx context.Context) ([]models.CollectedEntry, error) {
	return execute(c.cb, func() ([]models.CollectedEntry, error) { return c.api.FetchCollected(ctx) })
}

func (c *CircuitBreakerClient) FetchRatings(ctx context.Context) ([]models.RatingEntry, error) {
	return execute(c.cb, func() ([]models.RatingEntry, error) { return c.api.FetchRatings(ctx) })
}

func (c *CircuitBreakerClient) FetchPlayback(ctx context.Context) ([]models.PlaybackEntry, error) {
	return execute(c.cb, func() ([]models.PlaybackEntry, error) { return c.api.FetchPlayback(ctx) })
}

func (c *CircuitBreakerClient) AddWatchedHistory(ctx context.Context, entries []models.WatchedEntry) (*SyncResult, error) {
	return execute(c.cb, func() (*SyncResult, error) { return c.api.AddWatchedHistory(ctx, entries) })
}

func (c *CircuitBreakerClient) AddCollection(ctx context.Context, entries []models.CollectedEntry) (*SyncResult, error) {
	return execute(c.cb, func() (*SyncResult, error) { return c.api.AddCollection(ctx, entries) })
}

func (c *CircuitBreakerClient) RemoveCollection(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error) {
	return execute(c.cb, func() (*SyncResult, error) { return c.api.RemoveCollection(ctx, ids) })
}

func (c *CircuitBreakerClient) AddRatings(ctx context.Context, entries []models.RatingEntry) (*SyncResult, error) {
	return execute(c.cb, func() (*SyncResult, error) { return c.api.AddRatings(ctx, entries) })
}

func (c *CircuitBreakerClient) RemoveRatings(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error) {
	return execute(c.cb, func() (*SyncResult, error) { return c.api.RemoveRatings(ctx, ids) })
}

func (c *CircuitBreakerClient) StartScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return execute(c.cb, func() (*ScrobbleResult, error) { return c.api.StartScrobble(ctx, item, progress) })
}

func (c *CircuitBreakerClient) PauseScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return execute(c.cb, func() (*ScrobbleResult, error) { return c.api.PauseScrobble(ctx, item, progress) })
}

func (c *CircuitBreakerClient) StopScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return execute(c.cb, func() (*ScrobbleResult, error) { return c.api.StopScrobble(ctx, item, progress) })
}
