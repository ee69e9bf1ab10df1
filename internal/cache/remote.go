// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/metrics"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// snapshot holds one facet's remote state and when it was fetched.
type snapshot[T any] struct {
	entries   []T
	fetchedAt time.Time
}

func (s *snapshot[T]) fresh(now time.Time, ttl time.Duration) bool {
	return !s.fetchedAt.IsZero() && now.Sub(s.fetchedAt) < ttl
}

func (s *snapshot[T]) clear() {
	s.entries = nil
	s.fetchedAt = time.Time{}
}

// RemoteState caches the remote account's watched history, collection,
// ratings and playback positions so that a sync pass hits the remote
// once per facet instead of once per item.
//
// Snapshots refresh lazily on read once older than the TTL. Mutators
// update the cache optimistically after a successful push, so that
// back-to-back sync passes within one TTL window see their own writes
// and produce no duplicate pushes.
//
// All methods are safe for concurrent use. A refresh holds the lock for
// the duration of the remote fetch; concurrent readers of the same
// facet wait rather than racing duplicate fetches.
type RemoteState struct {
	mu  sync.Mutex
	api trakt.API
	ttl time.Duration
	now func() time.Time

	account string

	watched   snapshot[models.WatchedEntry]
	collected snapshot[models.CollectedEntry]
	ratings   snapshot[models.RatingEntry]
	playback  snapshot[models.PlaybackEntry]

	// unwatched accumulates identities that were present in a previous
	// watched snapshot but missing from a later one, meaning the user
	// unwatched them remotely. Consumed by the watched reconciler.
	unwatched []models.MediaIdentity
}

// NewRemoteState creates a cache over the given API with the given
// snapshot TTL.
func NewRemoteState(api trakt.API, ttl time.Duration) *RemoteState {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RemoteState{
		api: api,
		ttl: ttl,
		now: time.Now,
	}
}

// SetAccount records which remote account the cache reflects. Switching
// accounts drops every snapshot and the pending unwatched delta so no
// state from the previous account leaks into the next sync.
func (c *RemoteState) SetAccount(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.account == username {
		return
	}
	if c.account != "" {
		logging.Info().
			Str("from", c.account).
			Str("to", username).
			Msg("Account changed, invalidating remote state cache")
	}
	c.account = username
	c.invalidateLocked()
}

// Invalidate drops all snapshots. The next read of each facet fetches
// from the remote.
func (c *RemoteState) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *RemoteState) invalidateLocked() {
	c.watched.clear()
	c.collected.clear()
	c.ratings.clear()
	c.playback.clear()
	c.unwatched = nil
}

// Watched returns the remote watched history, refreshing it when stale.
// On refresh, entries present in the previous snapshot but absent from
// the new one are appended to the unwatched delta.
func (c *RemoteState) Watched(ctx context.Context) ([]models.WatchedEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watched.fresh(c.now(), c.ttl) {
		metrics.CacheHits.WithLabelValues(string(models.FacetWatched)).Inc()
		return cloneSlice(c.watched.entries), nil
	}

	fresh, err := c.api.FetchWatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh watched snapshot: %w", err)
	}
	metrics.CacheRefreshes.WithLabelValues(string(models.FacetWatched)).Inc()

	// A previous snapshot lets us spot remote unwatch events.
	if !c.watched.fetchedAt.IsZero() {
		c.unwatched = append(c.unwatched, missingFrom(c.watched.entries, fresh)...)
	}

	c.watched.entries = fresh
	c.watched.fetchedAt = c.now()
	return cloneSlice(fresh), nil
}

// UnwatchedDelta returns and clears the identities observed to have
// been unwatched remotely since the delta was last consumed.
func (c *RemoteState) UnwatchedDelta() []models.MediaIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()

	delta := c.unwatched
	c.unwatched = nil
	return delta
}

// RequeueUnwatched puts a consumed delta back so the next sync cycle
// sees it. Used when a cycle aborts before every provider has had the
// downgrades applied; the delta cannot be regenerated from snapshots
// once the unwatch has been observed.
func (c *RemoteState) RequeueUnwatched(ids []models.MediaIdentity) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if !inSet(c.unwatched, id) {
			c.unwatched = append(c.unwatched, id)
		}
	}
}

// Collected returns the remote collection, refreshing it when stale.
func (c *RemoteState) Collected(ctx context.Context) ([]models.CollectedEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collected.fresh(c.now(), c.ttl) {
		metrics.CacheHits.WithLabelValues(string(models.FacetCollected)).Inc()
		return cloneSlice(c.collected.entries), nil
	}

	fresh, err := c.api.FetchCollected(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh collected snapshot: %w", err)
	}
	metrics.CacheRefreshes.WithLabelValues(string(models.FacetCollected)).Inc()

	c.collected.entries = fresh
	c.collected.fetchedAt = c.now()
	return cloneSlice(fresh), nil
}

// Ratings returns the remote ratings, refreshing them when stale.
func (c *RemoteState) Ratings(ctx context.Context) ([]models.RatingEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ratings.fresh(c.now(), c.ttl) {
		metrics.CacheHits.WithLabelValues(string(models.FacetRatings)).Inc()
		return cloneSlice(c.ratings.entries), nil
	}

	fresh, err := c.api.FetchRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh ratings snapshot: %w", err)
	}
	metrics.CacheRefreshes.WithLabelValues(string(models.FacetRatings)).Inc()

	c.ratings.entries = fresh
	c.ratings.fetchedAt = c.now()
	return cloneSlice(fresh), nil
}

// Playback returns the remote playback positions, refreshing them when
// stale.
func (c *RemoteState) Playback(ctx context.Context) ([]models.PlaybackEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playback.fresh(c.now(), c.ttl) {
		metrics.CacheHits.WithLabelValues(string(models.FacetPlayback)).Inc()
		return cloneSlice(c.playback.entries), nil
	}

	fresh, err := c.api.FetchPlayback(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh playback snapshot: %w", err)
	}
	metrics.CacheRefreshes.WithLabelValues(string(models.FacetPlayback)).Inc()

	c.playback.entries = fresh
	c.playback.fetchedAt = c.now()
	return cloneSlice(fresh), nil
}

// AddWatched merges pushed entries into the watched snapshot. Matching
// entries absorb the new play count and watch date; unknown entries are
// appended. No-op when no snapshot has been taken yet.
func (c *RemoteState) AddWatched(entries []models.WatchedEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watched.fetchedAt.IsZero() {
		return
	}
	for _, e := range entries {
		if i := indexOfWatched(c.watched.entries, e.Identity); i >= 0 {
			existing := &c.watched.entries[i]
			if e.Plays > existing.Plays {
				existing.Plays = e.Plays
			}
			if e.LastWatchedAt.After(existing.LastWatchedAt) {
				existing.LastWatchedAt = e.LastWatchedAt
			}
			continue
		}
		c.watched.entries = append(c.watched.entries, e)
	}
}

// RemoveWatched drops entries from the watched snapshot. Used to roll
// back optimistic updates for entries the remote rejected.
func (c *RemoteState) RemoveWatched(ids []models.MediaIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if i := indexOfWatched(c.watched.entries, id); i >= 0 {
			c.watched.entries = append(c.watched.entries[:i], c.watched.entries[i+1:]...)
		}
	}
}

// AppendWatchedPlay records one completed watch in the snapshot. Called
// by the scrobble monitor after the remote confirms a committed watch,
// so the next library sync does not re-push it.
func (c *RemoteState) AppendWatchedPlay(id models.MediaIdentity, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watched.fetchedAt.IsZero() {
		return
	}
	if i := indexOfWatched(c.watched.entries, id); i >= 0 {
		c.watched.entries[i].Plays++
		if at.After(c.watched.entries[i].LastWatchedAt) {
			c.watched.entries[i].LastWatchedAt = at
		}
		return
	}
	c.watched.entries = append(c.watched.entries, models.WatchedEntry{
		Identity:      id,
		Plays:         1,
		LastWatchedAt: at,
	})
}

// AddCollected merges pushed entries into the collection snapshot.
func (c *RemoteState) AddCollected(entries []models.CollectedEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collected.fetchedAt.IsZero() {
		return
	}
	for _, e := range entries {
		if i := indexOfCollected(c.collected.entries, e.Identity); i >= 0 {
			c.collected.entries[i] = e
			continue
		}
		c.collected.entries = append(c.collected.entries, e)
	}
}

// RemoveCollected drops entries from the collection snapshot.
func (c *RemoteState) RemoveCollected(ids []models.MediaIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if i := indexOfCollected(c.collected.entries, id); i >= 0 {
			c.collected.entries = append(c.collected.entries[:i], c.collected.entries[i+1:]...)
		}
	}
}

// AddRatings merges pushed entries into the ratings snapshot.
func (c *RemoteState) AddRatings(entries []models.RatingEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ratings.fetchedAt.IsZero() {
		return
	}
	for _, e := range entries {
		if i := indexOfRated(c.ratings.entries, e.Identity); i >= 0 {
			c.ratings.entries[i] = e
			continue
		}
		c.ratings.entries = append(c.ratings.entries, e)
	}
}

// RemoveRatings drops entries from the ratings snapshot.
func (c *RemoteState) RemoveRatings(ids []models.MediaIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if i := indexOfRated(c.ratings.entries, id); i >= 0 {
			c.ratings.entries = append(c.ratings.entries[:i], c.ratings.entries[i+1:]...)
		}
	}
}

// RemovePlayback drops one item's playback position from the snapshot,
// after its resume point has been applied locally.
func (c *RemoteState) RemovePlayback(id models.MediaIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.playback.entries {
		if models.Matches(e.Identity, id) {
			c.playback.entries = append(c.playback.entries[:i], c.playback.entries[i+1:]...)
			return
		}
	}
}

// missingFrom returns the identities present in prev but absent from next.
func missingFrom(prev, next []models.WatchedEntry) []models.MediaIdentity {
	var missing []models.MediaIdentity
	for _, p := range prev {
		if indexOfWatched(next, p.Identity) < 0 {
			missing = append(missing, p.Identity)
		}
	}
	return missing
}

func inSet(set []models.MediaIdentity, id models.MediaIdentity) bool {
	for _, s := range set {
		if models.Matches(s, id) {
			return true
		}
	}
	return false
}

func indexOfWatched(entries []models.WatchedEntry, id models.MediaIdentity) int {
	for i, e := range entries {
		if models.Matches(e.Identity, id) {
			return i
		}
	}
	return -1
}

func indexOfCollected(entries []models.CollectedEntry, id models.MediaIdentity) int {
	for i, e := range entries {
		if models.Matches(e.Identity, id) {
			return i
		}
	}
	return -1
}

func indexOfRated(entries []models.RatingEntry, id models.MediaIdentity) int {
	for i, e := range entries {
		if models.Matches(e.Identity, id) {
			return i
		}
	}
	return -1
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
