// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import (
	"context"
	"time"

	"github.com/jfairbairn/reelsync/internal/models"
)

// LibraryProvider exposes one local media catalogue to the engine. The
// engine reads a full snapshot per sync cycle and issues explicit
// mutation calls; it never holds references into provider state across
// cycles.
type LibraryProvider interface {
	// Name identifies the provider in logs and summaries.
	Name() string

	// ListAll returns a snapshot of every item in the catalogue.
	ListAll(ctx context.Context) ([]models.LocalItem, error)

	// SetWatched updates an item's watched flag and play count.
	SetWatched(ctx context.Context, internalID int, watched bool, playCount int) error

	// SetLastWatched records the watch date on an item. Called only when
	// the item has no watch date of its own.
	SetLastWatched(ctx context.Context, internalID int, at time.Time) error

	// SetResumePosition stores an absolute resume point in seconds.
	// Zero clears any stored resume point.
	SetResumePosition(ctx context.Context, internalID int, seconds int) error

	// Lookup resolves a playing file back to a library item. Returns
	// nil when the path is not part of this catalogue.
	Lookup(ctx context.Context, filePath string) (*models.LocalItem, error)
}

// RatingsProvider is optionally implemented by providers that track
// user ratings locally. Ratings sync is push-only; remote ratings are
// never written back through this interface.
type RatingsProvider interface {
	ListRatings(ctx context.Context) ([]models.RatingEntry, error)
}
