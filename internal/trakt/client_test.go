// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package trakt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&config.TraktConfig{
		BaseURL:       srv.URL,
		ClientID:      "test-client-id",
		AccessToken:   "test-token",
		AppVersion:    "1.0.0",
		AppDate:       "2026-01-01",
		Timeout:       5 * time.Second,
		RatePerSecond: 1000,
		RateBurst:     1000,
	})
	return client, srv
}

func TestClientSendsAPIHeaders(t *testing.T) {
	var got http.Header
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))

	if _, err := client.FetchWatched(context.Background()); err != nil {
		t.Fatalf("FetchWatched: %v", err)
	}

	checks := map[string]string{
		"trakt-api-version": "2",
		"trakt-api-key":     "test-client-id",
		"Authorization":     "Bearer test-token",
		"Content-Type":      "application/json",
	}
	for header, want := range checks {
		if v := got.Get(header); v != want {
			t.Errorf("header %s = %q, want %q", header, v, want)
		}
	}
}

func TestFetchWatchedDecodesAndNormalizes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync/watched/movies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"plays": 3, "last_watched_at": "2023-01-01T00:00:00Z",
			 "movie": {"title": "Alien", "year": 1979, "ids": {"imdb": "tt78748", "tmdb": 348}}}
		]`))
	}))

	entries, err := client.FetchWatched(context.Background())
	if err != nil {
		t.Fatalf("FetchWatched: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Plays != 3 {
		t.Errorf("plays = %d, want 3", e.Plays)
	}
	if e.Identity.IDs.IMDB != "tt0078748" {
		t.Errorf("imdb = %q, want padded tt0078748", e.Identity.IDs.IMDB)
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !e.LastWatchedAt.Equal(want) {
		t.Errorf("lastWatchedAt = %v, want %v", e.LastWatchedAt, want)
	}
}

func TestFetchPlaybackSkipsNonMovies(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"progress": 25.5, "paused_at": "2023-06-01T12:00:00Z", "type": "movie",
			 "movie": {"title": "Heat", "year": 1995, "ids": {"imdb": "tt0113277"}}},
			{"progress": 50.0, "paused_at": "2023-06-01T12:00:00Z", "type": "episode"}
		]`))
	}))

	entries, err := client.FetchPlayback(context.Background())
	if err != nil {
		t.Fatalf("FetchPlayback: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (episode dropped)", len(entries))
	}
	if entries[0].Progress != 25.5 {
		t.Errorf("progress = %v, want 25.5", entries[0].Progress)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))

	if _, err := client.FetchRatings(context.Background()); err != nil {
		t.Fatalf("FetchRatings after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestAddWatchedHistoryReportsNotFound(t *testing.T) {
	var gotBody syncMovies[syncWatchedMovie]
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sync/history" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"added": {"movies": 1},
			"not_found": {"movies": [{"title": "Obscure", "year": 2001, "ids": {"imdb": "tt0000002"}}]}
		}`))
	}))

	entries := []models.WatchedEntry{
		{Identity: models.MediaIdentity{Title: "Alien", Year: 1979, IDs: models.MediaIDs{IMDB: "tt0078748"}},
			LastWatchedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Identity: models.MediaIdentity{Title: "Obscure", Year: 2001, IDs: models.MediaIDs{IMDB: "tt2"}}},
	}

	result, err := client.AddWatchedHistory(context.Background(), entries)
	if err != nil {
		t.Fatalf("AddWatchedHistory: %v", err)
	}

	if len(gotBody.Movies) != 2 {
		t.Fatalf("payload carried %d movies, want 2", len(gotBody.Movies))
	}
	if gotBody.Movies[0].WatchedAt != "2023-01-01T00:00:00Z" {
		t.Errorf("watched_at = %q", gotBody.Movies[0].WatchedAt)
	}
	if gotBody.Movies[1].IDs.IMDB != "tt0000002" {
		t.Errorf("payload imdb = %q, want normalized tt0000002", gotBody.Movies[1].IDs.IMDB)
	}

	if result.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", result.Accepted)
	}
	if len(result.NotFound) != 1 || result.NotFound[0].IDs.IMDB != "tt0000002" {
		t.Errorf("notFound = %+v, want one entry tt0000002", result.NotFound)
	}
}

func TestRemoveCollectionCountsDeleted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync/collection/remove" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"deleted": {"movies": 2}, "not_found": {"movies": []}}`))
	}))

	ids := []models.MediaIdentity{
		{Title: "A", Year: 2000, IDs: models.MediaIDs{IMDB: "tt0000001"}},
		{Title: "B", Year: 2001, IDs: models.MediaIDs{IMDB: "tt0000002"}},
	}
	result, err := client.RemoveCollection(context.Background(), ids)
	if err != nil {
		t.Fatalf("RemoveCollection: %v", err)
	}
	if result.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", result.Accepted)
	}
	if len(result.NotFound) != 0 {
		t.Errorf("notFound = %+v, want empty", result.NotFound)
	}
}

func TestMutationNotRetried(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.AddRatings(context.Background(), []models.RatingEntry{
		{Identity: models.MediaIdentity{Title: "A", Year: 2000}, Rating: 8},
	})
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (mutations must not replay)", attempts)
	}
}

func TestStopScrobbleParsesAction(t *testing.T) {
	var gotReq scrobbleRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrobble/stop" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": 12345, "action": "scrobble", "progress": 99.9,
			"movie": {"title": "Heat", "year": 1995, "ids": {"imdb": "tt0113277"}}
		}`))
	}))

	item := models.MediaIdentity{Title: "Heat", Year: 1995, IDs: models.MediaIDs{IMDB: "tt0113277"}}
	result, err := client.StopScrobble(context.Background(), item, 99.9)
	if err != nil {
		t.Fatalf("StopScrobble: %v", err)
	}

	if gotReq.Progress != 99.9 {
		t.Errorf("request progress = %v, want 99.9", gotReq.Progress)
	}
	if gotReq.AppVersion != "1.0.0" {
		t.Errorf("app_version = %q, want 1.0.0", gotReq.AppVersion)
	}

	if result.Action != ActionScrobble {
		t.Errorf("action = %q, want %q", result.Action, ActionScrobble)
	}
	if result.Item == nil || result.Item.IDs.IMDB != "tt0113277" {
		t.Errorf("item = %+v, want resolved tt0113277", result.Item)
	}
}

func TestScrobbleTransportErrorSurfaces(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	item := models.MediaIdentity{Title: "Heat", Year: 1995}
	if _, err := client.StartScrobble(context.Background(), item, 1.0); err == nil {
		t.Fatal("expected error when remote unreachable")
	}
}
