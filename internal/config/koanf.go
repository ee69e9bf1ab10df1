// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelsync/config.yaml",
	"/etc/reelsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Trakt: TraktConfig{
			BaseURL:       "https://api.trakt.tv",
			Timeout:       30 * time.Second,
			RatePerSecond: 2,
			RateBurst:     4,
			AppVersion:    "dev",
		},
		Sync: SyncConfig{
			LibraryEnabled:   true,
			PlaybackEnabled:  true,
			Interval:         6 * time.Hour,
			PlaybackInterval: 15 * time.Minute,
			BatchSize:        100,
			KeepRemoteClean:  false,
			ResumeDelta:      5,
		},
		Scrobble: ScrobbleConfig{
			WatchedPercent:  85,
			RateOnWatched:   false,
			RateInPlaylists: false,
		},
		Cache: CacheConfig{
			TTL: 15 * time.Minute,
		},
		State: StateConfig{
			Dir: "/data/reelsync/state",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3863,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if one exists)
//  3. Environment Variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// TRAKT_CLIENT_ID -> trakt.client_id, SYNC_BATCH_SIZE -> sync.batch_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first readable config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated lists when supplied via environment variables.
var sliceConfigPaths = []string{
	"sync.blocked_folders",
	"sync.blocked_filenames",
}

// processSliceFields converts comma-separated string values to slices.
// Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML), leave alone.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envPrefixes maps environment variable prefixes to config sections.
var envPrefixes = map[string]string{
	"TRAKT_":    "trakt.",
	"LIBRARY_":  "library.",
	"SYNC_":     "sync.",
	"SCROBBLE_": "scrobble.",
	"CACHE_":    "cache.",
	"STATE_":    "state.",
	"SERVER_":   "server.",
	"LOG_":      "logging.",
}

// envTransformFunc transforms environment variable names to koanf paths.
//
// Examples:
//   - TRAKT_ACCESS_TOKEN -> trakt.access_token
//   - SYNC_KEEP_REMOTE_CLEAN -> sync.keep_remote_clean
//   - LOG_LEVEL -> logging.level
//
// Unrecognized variables map to the empty string and are ignored so that
// unrelated environment noise never leaks into the config tree.
func envTransformFunc(key string) string {
	for prefix, section := range envPrefixes {
		if strings.HasPrefix(key, prefix) {
			rest := strings.ToLower(strings.TrimPrefix(key, prefix))
			return section + rest
		}
	}
	return ""
}
