// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package trakt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
)

// API is the remote surface consumed by the sync engine and the scrobble
// monitor. Client implements it directly; CircuitBreakerClient wraps it
// with failure protection.
type API interface {
	FetchWatched(ctx context.Context) ([]models.WatchedEntry, error)
	FetchCollected(ctx context.Context) ([]models.CollectedEntry, error)
	FetchRatings(ctx context.Context) ([]models.RatingEntry, error)
	FetchPlayback(ctx context.Context) ([]models.PlaybackEntry, error)

	AddWatchedHistory(ctx context.Context, entries []models.WatchedEntry) (*SyncResult, error)
	AddCollection(ctx context.Context, entries []models.CollectedEntry) (*SyncResult, error)
	RemoveCollection(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error)
	AddRatings(ctx context.Context, entries []models.RatingEntry) (*SyncResult, error)
	RemoveRatings(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error)

	StartScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error)
	PauseScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error)
	StopScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error)
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// fetchRetryAttempts is the retry count for idempotent GET requests.
// Mutation calls are never retried by the client; a replayed POST could
// double-apply history entries.
const fetchRetryAttempts = 3

// Client is an HTTP client for the trakt.tv v2 API. All calls pass
// through a shared rate limiter so that concurrent facet syncs and
// scrobble signals stay within the remote's request budget.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	appVersion  string
	appDate     string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a remote API client from configuration.
func NewClient(cfg *config.TraktConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		clientID:    cfg.ClientID,
		accessToken: cfg.AccessToken,
		appVersion:  cfg.AppVersion,
		appDate:     cfg.AppDate,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
	}
}

// do executes one API request and decodes the JSON response into out.
// The rate limiter is consulted before the request goes on the wire.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.APIRequestErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("request %s %s: unexpected status %d", method, endpoint, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// fetch executes an idempotent GET with bounded retries.
func (c *Client) fetch(ctx context.Context, endpoint string, out interface{}) error {
	return retry.Do(
		func() error { return c.do(ctx, http.MethodGet, endpoint, nil, out) },
		retry.Context(ctx),
		retry.Attempts(fetchRetryAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// FetchWatched retrieves the account's full watched-movie history.
func (c *Client) FetchWatched(ctx context.Context) ([]models.WatchedEntry, error) {
	var wire []watchedMovie
	if err := c.fetch(ctx, "/sync/watched/movies", &wire); err != nil {
		return nil, fmt.Errorf("fetch watched: %w", err)
	}

	entries := make([]models.WatchedEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, models.WatchedEntry{
			Identity:      toIdentity(w.Movie),
			Plays:         w.Plays,
			LastWatchedAt: parseTime(w.LastWatchedAt),
		})
	}
	return entries, nil
}

// FetchCollected retrieves the account's movie collection.
func (c *Client) FetchCollected(ctx context.Context) ([]models.CollectedEntry, error) {
	var wire []collectedMovie
	if err := c.fetch(ctx, "/sync/collection/movies?extended=metadata", &wire); err != nil {
		return nil, fmt.Errorf("fetch collected: %w", err)
	}

	entries := make([]models.CollectedEntry, 0, len(wire))
	for _, cm := range wire {
		entries = append(entries, models.CollectedEntry{
			Identity:      toIdentity(cm.Movie),
			CollectedAt:   parseTime(cm.CollectedAt),
			MediaType:     cm.MediaType,
			Resolution:    cm.Resolution,
			AudioCodec:    cm.Audio,
			AudioChannels: cm.AudioChannels,
			Is3D:          cm.Is3D,
		})
	}
	return entries, nil
}

// FetchRatings retrieves the account's movie ratings.
func (c *Client) FetchRatings(ctx context.Context) ([]models.RatingEntry, error) {
	var wire []ratedMovie
	if err := c.fetch(ctx, "/sync/ratings/movies", &wire); err != nil {
		return nil, fmt.Errorf("fetch ratings: %w", err)
	}

	entries := make([]models.RatingEntry, 0, len(wire))
	for _, r := range wire {
		entries = append(entries, models.RatingEntry{
			Identity: toIdentity(r.Movie),
			Rating:   r.Rating,
			RatedAt:  parseTime(r.RatedAt),
		})
	}
	return entries, nil
}

// FetchPlayback retrieves in-progress playback positions. Non-movie
// entries are dropped here; the engine only handles movies.
func (c *Client) FetchPlayback(ctx context.Context) ([]models.PlaybackEntry, error) {
	var wire []playbackItem
	if err := c.fetch(ctx, "/sync/playback/movies", &wire); err != nil {
		return nil, fmt.Errorf("fetch playback: %w", err)
	}

	entries := make([]models.PlaybackEntry, 0, len(wire))
	for _, p := range wire {
		if p.Type != "movie" || p.Movie == nil {
			continue
		}
		entries = append(entries, models.PlaybackEntry{
			Identity: toIdentity(*p.Movie),
			Type:     p.Type,
			Progress: p.Progress,
			PausedAt: parseTime(p.PausedAt),
		})
	}
	return entries, nil
}

// AddWatchedHistory submits one page of watched entries.
func (c *Client) AddWatchedHistory(ctx context.Context, entries []models.WatchedEntry) (*SyncResult, error) {
	payload := syncMovies[syncWatchedMovie]{Movies: make([]syncWatchedMovie, 0, len(entries))}
	for _, e := range entries {
		m := toWireMovie(e.Identity)
		payload.Movies = append(payload.Movies, syncWatchedMovie{
			WatchedAt: formatTime(e.LastWatchedAt),
			Title:     m.Title,
			Year:      m.Year,
			IDs:       m.IDs,
		})
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/sync/history", payload, &resp); err != nil {
		return nil, fmt.Errorf("add watched history: %w", err)
	}
	return &SyncResult{Accepted: resp.Added.Movies, NotFound: notFoundIdentities(resp)}, nil
}

// AddCollection submits one page of collection entries.
func (c *Client) AddCollection(ctx context.Context, entries []models.CollectedEntry) (*SyncResult, error) {
	payload := syncMovies[syncCollectedMovie]{Movies: make([]syncCollectedMovie, 0, len(entries))}
	for _, e := range entries {
		m := toWireMovie(e.Identity)
		payload.Movies = append(payload.Movies, syncCollectedMovie{
			CollectedAt:   formatTime(e.CollectedAt),
			MediaType:     e.MediaType,
			Resolution:    e.Resolution,
			Audio:         e.AudioCodec,
			AudioChannels: e.AudioChannels,
			Is3D:          e.Is3D,
			Title:         m.Title,
			Year:          m.Year,
			IDs:           m.IDs,
		})
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/sync/collection", payload, &resp); err != nil {
		return nil, fmt.Errorf("add collection: %w", err)
	}
	return &SyncResult{Accepted: resp.Added.Movies + resp.Updated.Movies, NotFound: notFoundIdentities(resp)}, nil
}

// RemoveCollection submits one page of collection removals.
func (c *Client) RemoveCollection(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error) {
	payload := syncMovies[movie]{Movies: make([]movie, 0, len(ids))}
	for _, id := range ids {
		payload.Movies = append(payload.Movies, toWireMovie(id))
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/sync/collection/remove", payload, &resp); err != nil {
		return nil, fmt.Errorf("remove collection: %w", err)
	}
	return &SyncResult{Accepted: resp.Deleted.Movies, NotFound: notFoundIdentities(resp)}, nil
}

// AddRatings submits one page of rating entries.
func (c *Client) AddRatings(ctx context.Context, entries []models.RatingEntry) (*SyncResult, error) {
	payload := syncMovies[syncRatedMovie]{Movies: make([]syncRatedMovie, 0, len(entries))}
	for _, e := range entries {
		m := toWireMovie(e.Identity)
		payload.Movies = append(payload.Movies, syncRatedMovie{
			RatedAt: formatTime(e.RatedAt),
			Rating:  e.Rating,
			Title:   m.Title,
			Year:    m.Year,
			IDs:     m.IDs,
		})
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/sync/ratings", payload, &resp); err != nil {
		return nil, fmt.Errorf("add ratings: %w", err)
	}
	return &SyncResult{Accepted: resp.Added.Movies, NotFound: notFoundIdentities(resp)}, nil
}

// RemoveRatings submits one page of rating removals.
func (c *Client) RemoveRatings(ctx context.Context, ids []models.MediaIdentity) (*SyncResult, error) {
	payload := syncMovies[movie]{Movies: make([]movie, 0, len(ids))}
	for _, id := range ids {
		payload.Movies = append(payload.Movies, toWireMovie(id))
	}

	var resp syncResponse
	if err := c.do(ctx, http.MethodPost, "/sync/ratings/remove", payload, &resp); err != nil {
		return nil, fmt.Errorf("remove ratings: %w", err)
	}
	return &SyncResult{Accepted: resp.Deleted.Movies, NotFound: notFoundIdentities(resp)}, nil
}

// notFoundIdentities extracts the rejected identities from a sync response.
func notFoundIdentities(resp syncResponse) []models.MediaIdentity {
	if len(resp.NotFound.Movies) == 0 {
		return nil
	}
	ids := make([]models.MediaIdentity, 0, len(resp.NotFound.Movies))
	for _, m := range resp.NotFound.Movies {
		ids = append(ids, toIdentity(m))
	}
	return ids
}
