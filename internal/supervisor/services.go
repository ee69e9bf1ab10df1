// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jfairbairn/reelsync/internal/logging"
	syncengine "github.com/jfairbairn/reelsync/internal/sync"
)

// Syncer is the slice of sync.Manager the loop services need.
type Syncer interface {
	SyncLibrary(ctx context.Context) (*syncengine.Summary, error)
	SyncPlayback(ctx context.Context) (int, error)
}

// LibrarySyncService runs a full library sync on a fixed interval. An
// immediate sync runs on startup so a restarted daemon converges
// without waiting out the first interval.
type LibrarySyncService struct {
	manager  Syncer
	interval time.Duration
}

// NewLibrarySyncService creates the library sync loop service.
func NewLibrarySyncService(manager Syncer, interval time.Duration) *LibrarySyncService {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &LibrarySyncService{manager: manager, interval: interval}
}

// Serve implements suture.Service.
func (s *LibrarySyncService) Serve(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *LibrarySyncService) runOnce(ctx context.Context) {
	if _, err := s.manager.SyncLibrary(ctx); err != nil && !errors.Is(err, syncengine.ErrSyncInProgress) {
		logging.Error().Err(err).Msg("Scheduled library sync failed")
	}
}

func (s *LibrarySyncService) String() string { return "library-sync" }

// PlaybackSyncService runs the playback-resume sync on its own, shorter
// interval.
type PlaybackSyncService struct {
	manager  Syncer
	interval time.Duration
}

// NewPlaybackSyncService creates the playback sync loop service.
func NewPlaybackSyncService(manager Syncer, interval time.Duration) *PlaybackSyncService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &PlaybackSyncService{manager: manager, interval: interval}
}

// Serve implements suture.Service.
func (s *PlaybackSyncService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.manager.SyncPlayback(ctx); err != nil && !errors.Is(err, syncengine.ErrSyncInProgress) {
				logging.Error().Err(err).Msg("Scheduled playback sync failed")
			}
		}
	}
}

func (s *PlaybackSyncService) String() string { return "playback-sync" }

// HTTPServer matches *http.Server's lifecycle surface.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService adapts an HTTP server's blocking ListenAndServe to
// suture's context-aware Serve.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server as a supervised service.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. http.ErrServerClosed is treated as a
// clean shutdown.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	return ctx.Err()
}

func (h *HTTPServerService) String() string { return "ops-server" }
