// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package ops serves the operational HTTP surface: health, status,
// Prometheus metrics, and the playback webhook that feeds the scrobble
// monitor from an external player.
package ops

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/models"
	"github.com/jfairbairn/reelsync/internal/scrobble"
	syncengine "github.com/jfairbairn/reelsync/internal/sync"
)

// Server is the ops HTTP server.
type Server struct {
	manager   *syncengine.Manager
	monitor   *scrobble.Monitor
	providers []syncengine.LibraryProvider
	version   string
}

// NewServer creates the ops server.
func NewServer(manager *syncengine.Manager, monitor *scrobble.Monitor, providers []syncengine.LibraryProvider, version string) *Server {
	return &Server{
		manager:   manager,
		monitor:   monitor,
		providers: providers,
		version:   version,
	}
}

// HTTPServer builds the configured *http.Server for supervision.
func (s *Server) HTTPServer(cfg *config.ServerConfig) *http.Server {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/playback", func(r chi.Router) {
		r.Post("/start", s.handlePlaybackStart)
		r.Post("/progress", s.handlePlaybackProgress)
		r.Post("/pause", s.handlePlaybackPause)
		r.Post("/stop", s.handlePlaybackStop)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Version       string          `json:"version"`
	LastSync      *time.Time      `json:"last_sync,omitempty"`
	LastRun       *runStatus      `json:"last_run,omitempty"`
	ScrobbleState string          `json:"scrobble_state"`
	NowScrobbling *scrobbleStatus `json:"now_scrobbling,omitempty"`
}

type runStatus struct {
	RunID          string         `json:"run_id"`
	DurationMS     int64          `json:"duration_ms"`
	AppliedLocally int            `json:"applied_locally"`
	Facets         map[string]any `json:"facets"`
	FailedFacets   []string       `json:"failed_facets,omitempty"`
}

type scrobbleStatus struct {
	Title    string  `json:"title"`
	Year     int     `json:"year,omitempty"`
	Progress float64 `json:"progress"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Version: s.version}

	if last := s.manager.LastSync(); !last.IsZero() {
		resp.LastSync = &last
	}
	if summary := s.manager.LastSummary(); summary != nil {
		run := &runStatus{
			RunID:          summary.RunID,
			DurationMS:     summary.Duration.Milliseconds(),
			AppliedLocally: summary.AppliedLocally,
			Facets:         make(map[string]any, len(summary.Facets)),
		}
		for facet, result := range summary.Facets {
			run.Facets[string(facet)] = result
		}
		for _, facet := range summary.Failed {
			run.FailedFacets = append(run.FailedFacets, string(facet))
		}
		resp.LastRun = run
	}

	state, session := s.monitor.Status()
	resp.ScrobbleState = state.String()
	if session != nil {
		resp.NowScrobbling = &scrobbleStatus{
			Title:    session.Item.Title,
			Year:     session.Item.Year,
			Progress: session.LastProgress,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// playbackEvent is the webhook payload an external player posts on
// playback transitions.
type playbackEvent struct {
	FilePath        string  `json:"file_path"`
	DurationSeconds float64 `json:"duration_seconds"`
	PositionSeconds float64 `json:"position_seconds"`
	InPlaylist      bool    `json:"in_playlist"`
}

func (s *Server) handlePlaybackStart(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}

	item := s.lookup(r.Context(), event.FilePath)
	if item == nil {
		// Not a library item; nothing to scrobble.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	s.monitor.Start(r.Context(), item.Identity, item.InternalID,
		event.DurationSeconds, float64(item.DurationSeconds), event.PositionSeconds, event.InPlaylist)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handlePlaybackProgress(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.monitor.Progress(event.PositionSeconds)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlaybackPause(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.monitor.Pause(r.Context(), event.PositionSeconds)
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.monitor.Stop(r.Context(), event.PositionSeconds)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (playbackEvent, bool) {
	var event playbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return event, false
	}
	return event, true
}

// lookup resolves a file path across all providers.
func (s *Server) lookup(ctx context.Context, filePath string) *models.LocalItem {
	if filePath == "" {
		return nil
	}
	for _, provider := range s.providers {
		item, err := provider.Lookup(ctx, filePath)
		if err != nil {
			logging.Warn().Err(err).Str("provider", provider.Name()).
				Str("path", filePath).Msg("Library lookup failed")
			continue
		}
		if item != nil {
			return item
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Debug().Err(err).Msg("Failed to encode response")
	}
}
