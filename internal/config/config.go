// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package config

import "time"

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Trakt    TraktConfig    `koanf:"trakt"`
	Library  LibraryConfig  `koanf:"library"`
	Sync     SyncConfig     `koanf:"sync"`
	Scrobble ScrobbleConfig `koanf:"scrobble"`
	Cache    CacheConfig    `koanf:"cache"`
	State    StateConfig    `koanf:"state"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TraktConfig holds remote service connection settings.
//
// Environment Variables:
//   - TRAKT_BASE_URL: API base URL (default: https://api.trakt.tv)
//   - TRAKT_CLIENT_ID: registered application client ID (required)
//   - TRAKT_ACCESS_TOKEN: OAuth access token (required)
//   - TRAKT_USERNAME: account username, used to detect account switches
type TraktConfig struct {
	BaseURL     string        `koanf:"base_url"`
	ClientID    string        `koanf:"client_id"`
	AccessToken string        `koanf:"access_token"`
	Username    string        `koanf:"username"`
	Timeout     time.Duration `koanf:"timeout"`

	// RatePerSecond caps outgoing API calls. The remote enforces its own
	// limits; staying under them avoids 429 churn.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`

	// AppVersion and AppDate identify this client on scrobble calls.
	AppVersion string `koanf:"app_version"`
	AppDate    string `koanf:"app_date"`
}

// LibraryConfig selects the built-in local catalogue provider.
//
// Environment Variables:
//   - LIBRARY_FILE: path to a JSON library file. When empty, no built-in
//     provider is registered and sync cycles are effectively no-ops
//     until a provider is wired in programmatically.
type LibraryConfig struct {
	File string `koanf:"file"`
}

// SyncConfig holds library and playback synchronization settings.
//
// Environment Variables:
//   - SYNC_LIBRARY_ENABLED: master toggle for library sync (default: true)
//   - SYNC_PLAYBACK_ENABLED: toggle for resume-position sync (default: true)
//   - SYNC_INTERVAL: time between library sync cycles (default: 6h)
//   - SYNC_PLAYBACK_INTERVAL: time between resume sync cycles (default: 15m)
//   - SYNC_BATCH_SIZE: page size for batched remote submissions (default: 100)
//   - SYNC_KEEP_REMOTE_CLEAN: remove remote-only collection entries
//     (default: false; destructive, requires a single registered provider)
//   - SYNC_RESUME_DELTA: seconds subtracted from computed resume points
//   - SYNC_BLOCKED_FOLDERS / SYNC_BLOCKED_FILENAMES: comma-separated lists
type SyncConfig struct {
	LibraryEnabled   bool          `koanf:"library_enabled"`
	PlaybackEnabled  bool          `koanf:"playback_enabled"`
	Interval         time.Duration `koanf:"interval"`
	PlaybackInterval time.Duration `koanf:"playback_interval"`

	// BatchSize is the page size for batched remote submissions. Pages
	// within a facet are submitted strictly in order.
	BatchSize int `koanf:"batch_size"`

	// KeepRemoteClean enables removal of remote collection entries with
	// no local match. Gated on exactly one registered library provider so
	// a second catalogue feeding the same account is never clobbered.
	KeepRemoteClean bool `koanf:"keep_remote_clean"`

	// ResumeDelta is subtracted from every computed resume position so
	// playback restarts slightly before the recorded point.
	ResumeDelta int `koanf:"resume_delta"`

	BlockedFolders   []string `koanf:"blocked_folders"`
	BlockedFilenames []string `koanf:"blocked_filenames"`
}

// ScrobbleConfig holds real-time playback reporting settings.
//
// Environment Variables:
//   - SCROBBLE_WATCHED_PERCENT: completion threshold for the watched
//     commit (default: 85)
//   - SCROBBLE_RATE_ON_WATCHED: prompt for a rating when a movie crosses
//     the watched threshold (default: false)
//   - SCROBBLE_RATE_IN_PLAYLISTS: also prompt during playlist playback
type ScrobbleConfig struct {
	WatchedPercent  float64 `koanf:"watched_percent"`
	RateOnWatched   bool    `koanf:"rate_on_watched"`
	RateInPlaylists bool    `koanf:"rate_in_playlists"`
}

// CacheConfig controls the remote state cache.
type CacheConfig struct {
	// TTL is how long a fetched facet snapshot is considered fresh.
	TTL time.Duration `koanf:"ttl"`
}

// StateConfig controls local persistence (watermarks, account tracking).
type StateConfig struct {
	// Dir is the BadgerDB directory for persisted engine state.
	Dir string `koanf:"dir"`
}

// ServerConfig holds the ops HTTP server settings (health, status,
// metrics, playback webhook).
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, console
	File       string `koanf:"file"`   // optional rotating log file
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	Caller     bool   `koanf:"caller"`
}
