// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package main is the entry point for the reelsync daemon.
//
// Reelsync keeps a local video library and a trakt.tv account in step:
// watched history, collection, ratings, and resume positions flow both
// ways on a schedule, and an HTTP webhook feeds live playback into the
// scrobbler.
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: environment variables over optional YAML file (Koanf v2)
//  2. State store: BadgerDB directory for watermarks and account tracking
//  3. Remote client: trakt.tv API with rate limiting, retries, and a
//     circuit breaker
//  4. Remote state cache: TTL snapshots of the account's watched,
//     collected, ratings, and playback facets
//  5. Library provider: JSON-file catalogue (LIBRARY_FILE), when configured
//  6. Sync manager and scrobble monitor
//  7. Supervisor tree: library sync loop, playback sync loop, ops HTTP server
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. Required settings:
//   - TRAKT_CLIENT_ID: registered application client ID
//   - TRAKT_ACCESS_TOKEN: OAuth access token
//
// Common optional settings:
//   - TRAKT_USERNAME: account name; switching it resets cached remote
//     state and the playback watermark
//   - LIBRARY_FILE: path to the JSON library catalogue
//   - SYNC_INTERVAL / SYNC_PLAYBACK_INTERVAL: loop cadences
//   - SYNC_KEEP_REMOTE_CLEAN: enable destructive collection removal
//   - STATE_DIR: BadgerDB state directory
//
// # Signal Handling
//
// The daemon shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree stops its services, in-flight HTTP requests get a 10s drain, and
// the state store is closed last.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfairbairn/reelsync/internal/cache"
	"github.com/jfairbairn/reelsync/internal/config"
	"github.com/jfairbairn/reelsync/internal/library"
	"github.com/jfairbairn/reelsync/internal/logging"
	"github.com/jfairbairn/reelsync/internal/ops"
	"github.com/jfairbairn/reelsync/internal/scrobble"
	"github.com/jfairbairn/reelsync/internal/state"
	"github.com/jfairbairn/reelsync/internal/supervisor"
	syncengine "github.com/jfairbairn/reelsync/internal/sync"
	"github.com/jfairbairn/reelsync/internal/trakt"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Caller:     cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting reelsync")
	logging.Info().
		Str("trakt_url", cfg.Trakt.BaseURL).
		Str("account", cfg.Trakt.Username).
		Str("state_dir", cfg.State.Dir).
		Bool("library_sync", cfg.Sync.LibraryEnabled).
		Bool("playback_sync", cfg.Sync.PlaybackEnabled).
		Msg("Configuration loaded")

	// State store: watermarks and account tracking survive restarts.
	store, err := state.Open(cfg.State.Dir)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.State.Dir).Msg("Failed to open state store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	// An account switch invalidates the playback watermark; positions
	// synced for one account mean nothing for another.
	previous, err := store.Account()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to read stored account")
	}
	if previous != "" && previous != cfg.Trakt.Username {
		logging.Info().
			Str("from", previous).
			Str("to", cfg.Trakt.Username).
			Msg("Account switch detected, resetting playback watermark")
	}
	if err := store.SetAccount(cfg.Trakt.Username); err != nil {
		logging.Fatal().Err(err).Msg("Failed to record account")
	}

	// Remote client: rate-limited transport wrapped in a circuit breaker
	// so a flapping remote backs the whole engine off instead of
	// hammering through retries.
	client := trakt.NewClient(&cfg.Trakt)
	api := trakt.NewCircuitBreakerClient(client)

	remote := cache.NewRemoteState(api, cfg.Cache.TTL)
	remote.SetAccount(cfg.Trakt.Username)

	var providers []syncengine.LibraryProvider
	if cfg.Library.File != "" {
		fileProvider, err := library.NewFileProvider(cfg.Library.File)
		if err != nil {
			logging.Fatal().Err(err).Str("file", cfg.Library.File).Msg("Failed to load library file")
		}
		providers = append(providers, fileProvider)
		logging.Info().Str("file", cfg.Library.File).Msg("JSON library provider registered")
	} else {
		logging.Warn().Msg("No library provider configured (LIBRARY_FILE unset); sync cycles will be empty")
	}

	manager := syncengine.NewManager(providers, api, remote, store, &cfg.Sync)
	monitor := scrobble.NewMonitor(api, remote, &cfg.Scrobble, nil)

	opsServer := ops.NewServer(manager, monitor, providers, version)
	httpServer := opsServer.HTTPServer(&cfg.Server)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Sync.LibraryEnabled {
		tree.AddSyncService(supervisor.NewLibrarySyncService(manager, cfg.Sync.Interval))
		logging.Info().Dur("interval", cfg.Sync.Interval).Msg("Library sync service added")
	} else {
		logging.Info().Msg("Library sync disabled (SYNC_LIBRARY_ENABLED=false)")
	}
	if cfg.Sync.PlaybackEnabled {
		tree.AddSyncService(supervisor.NewPlaybackSyncService(manager, cfg.Sync.PlaybackInterval))
		logging.Info().Dur("interval", cfg.Sync.PlaybackInterval).Msg("Playback sync service added")
	} else {
		logging.Info().Msg("Playback sync disabled (SYNC_PLAYBACK_ENABLED=false)")
	}

	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, 10*time.Second))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Daemon stopped gracefully")
}
