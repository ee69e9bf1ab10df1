// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package trakt

import (
	"time"

	"github.com/jfairbairn/reelsync/internal/models"
)

// Wire representations of the trakt.tv v2 API. All timestamps travel as
// ISO-8601 strings and are converted to time.Time at the package
// boundary; nothing outside this package sees a wire struct.

// movieIDs is the identifier block attached to every movie object.
type movieIDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
}

// movie is the wire form of a movie reference.
type movie struct {
	Title string   `json:"title,omitempty"`
	Year  int      `json:"year,omitempty"`
	IDs   movieIDs `json:"ids"`
}

// watchedMovie is one element of GET /sync/watched/movies.
type watchedMovie struct {
	Plays         int    `json:"plays"`
	LastWatchedAt string `json:"last_watched_at"`
	Movie         movie  `json:"movie"`
}

// collectedMovie is one element of GET /sync/collection/movies.
type collectedMovie struct {
	CollectedAt   string `json:"collected_at"`
	MediaType     string `json:"media_type,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	Audio         string `json:"audio,omitempty"`
	AudioChannels string `json:"audio_channels,omitempty"`
	Is3D          bool   `json:"3d"`
	Movie         movie  `json:"movie"`
}

// ratedMovie is one element of GET /sync/ratings/movies.
type ratedMovie struct {
	RatedAt string `json:"rated_at"`
	Rating  int    `json:"rating"`
	Movie   movie  `json:"movie"`
}

// playbackItem is one element of GET /sync/playback.
type playbackItem struct {
	Progress float64 `json:"progress"`
	PausedAt string  `json:"paused_at"`
	Type     string  `json:"type"`
	Movie    *movie  `json:"movie,omitempty"`
}

// syncWatchedMovie is one element of the POST /sync/history payload.
type syncWatchedMovie struct {
	WatchedAt string   `json:"watched_at,omitempty"`
	Title     string   `json:"title,omitempty"`
	Year      int      `json:"year,omitempty"`
	IDs       movieIDs `json:"ids"`
}

// syncCollectedMovie is one element of the POST /sync/collection payload.
type syncCollectedMovie struct {
	CollectedAt   string   `json:"collected_at,omitempty"`
	MediaType     string   `json:"media_type,omitempty"`
	Resolution    string   `json:"resolution,omitempty"`
	Audio         string   `json:"audio,omitempty"`
	AudioChannels string   `json:"audio_channels,omitempty"`
	Is3D          bool     `json:"3d,omitempty"`
	Title         string   `json:"title,omitempty"`
	Year          int      `json:"year,omitempty"`
	IDs           movieIDs `json:"ids"`
}

// syncRatedMovie is one element of the POST /sync/ratings payload.
type syncRatedMovie struct {
	RatedAt string   `json:"rated_at,omitempty"`
	Rating  int      `json:"rating,omitempty"`
	Title   string   `json:"title,omitempty"`
	Year    int      `json:"year,omitempty"`
	IDs     movieIDs `json:"ids"`
}

// syncMovies wraps any movie list for sync POST endpoints.
type syncMovies[T any] struct {
	Movies []T `json:"movies"`
}

// syncCounts holds the per-type counters in a sync response.
type syncCounts struct {
	Movies int `json:"movies"`
}

// notFoundBlock lists entries the remote could not resolve.
type notFoundBlock struct {
	Movies []movie `json:"movies"`
}

// syncResponse is the wire response of the sync mutation endpoints.
type syncResponse struct {
	Added    syncCounts    `json:"added"`
	Updated  syncCounts    `json:"updated"`
	Existing syncCounts    `json:"existing"`
	Deleted  syncCounts    `json:"deleted"`
	NotFound notFoundBlock `json:"not_found"`
}

// scrobbleRequest is the payload of the scrobble endpoints.
type scrobbleRequest struct {
	Movie      movie   `json:"movie"`
	Progress   float64 `json:"progress"`
	AppVersion string  `json:"app_version,omitempty"`
	AppDate    string  `json:"app_date,omitempty"`
}

// scrobbleResponse is the wire response of the scrobble endpoints.
type scrobbleResponse struct {
	ID       int64   `json:"id"`
	Action   string  `json:"action"`
	Progress float64 `json:"progress"`
	Movie    *movie  `json:"movie,omitempty"`
}

// SyncResult reports the outcome of one paged mutation call.
type SyncResult struct {
	// Accepted is the number of entries the remote applied.
	Accepted int

	// NotFound identifies entries the remote rejected; the caller rolls
	// these back out of any optimistic cache update.
	NotFound []models.MediaIdentity
}

// Scrobble actions returned by the remote.
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionScrobble = "scrobble"
)

// ScrobbleResult reports the outcome of a scrobble signal.
type ScrobbleResult struct {
	Action   string
	Progress float64

	// Item is the remote's resolved identity for the scrobbled movie,
	// present when the remote recognized it.
	Item *models.MediaIdentity
}

// toWireMovie converts a MediaIdentity to its wire form.
func toWireMovie(id models.MediaIdentity) movie {
	return movie{
		Title: id.Title,
		Year:  id.Year,
		IDs: movieIDs{
			IMDB: models.NormalizeIMDBID(id.IDs.IMDB),
			TMDB: id.IDs.TMDB,
			Slug: id.IDs.Slug,
		},
	}
}

// toIdentity converts a wire movie to a MediaIdentity.
func toIdentity(m movie) models.MediaIdentity {
	return models.MediaIdentity{
		Title: m.Title,
		Year:  m.Year,
		IDs: models.MediaIDs{
			IMDB: models.NormalizeIMDBID(m.IDs.IMDB),
			TMDB: m.IDs.TMDB,
			Slug: m.IDs.Slug,
		},
	}
}

// parseTime parses an ISO-8601 wire timestamp, returning the zero time
// for empty or malformed values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// formatTime renders a timestamp in the wire's ISO-8601 form. The zero
// time renders as empty and is omitted from payloads.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
