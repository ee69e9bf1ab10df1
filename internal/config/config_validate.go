// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateTrakt(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateScrobble(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTrakt() error {
	if c.Trakt.BaseURL == "" {
		return fmt.Errorf("TRAKT_BASE_URL must not be empty")
	}
	u, err := url.Parse(c.Trakt.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TRAKT_BASE_URL is not a valid URL: %s", c.Trakt.BaseURL)
	}
	if c.Trakt.ClientID == "" {
		return fmt.Errorf("TRAKT_CLIENT_ID is required")
	}
	if c.Trakt.AccessToken == "" {
		return fmt.Errorf("TRAKT_ACCESS_TOKEN is required")
	}
	if c.Trakt.RatePerSecond <= 0 {
		return fmt.Errorf("TRAKT_RATE_PER_SECOND must be positive, got %v", c.Trakt.RatePerSecond)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %v", c.Sync.Interval)
	}
	if c.Sync.PlaybackInterval <= 0 {
		return fmt.Errorf("SYNC_PLAYBACK_INTERVAL must be positive, got %v", c.Sync.PlaybackInterval)
	}
	if c.Sync.ResumeDelta < 0 {
		return fmt.Errorf("SYNC_RESUME_DELTA must not be negative, got %d", c.Sync.ResumeDelta)
	}
	return nil
}

func (c *Config) validateScrobble() error {
	if c.Scrobble.WatchedPercent <= 0 || c.Scrobble.WatchedPercent > 100 {
		return fmt.Errorf("SCROBBLE_WATCHED_PERCENT must be in (0, 100], got %v", c.Scrobble.WatchedPercent)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %s", c.Logging.Format)
	}
}
