// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

/*
Package config provides layered configuration loading for Reelsync.

Configuration is assembled with Koanf v2 from three layers, later layers
overriding earlier ones:

 1. Struct defaults (defaultConfig)
 2. An optional YAML file (config.yaml, or CONFIG_PATH)
 3. Environment variables (TRAKT_*, SYNC_*, SCROBBLE_*, CACHE_*, STATE_*,
    SERVER_*, LOG_*)

Load() returns a validated, immutable Config that is safe for concurrent
reads for the lifetime of the process.
*/
package config
