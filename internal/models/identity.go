// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package models

import (
	"fmt"
	"strings"
)

// MediaIDs holds the external identifiers a media entity may carry.
// Any field may be empty; IMDb IDs are stored in canonical form
// (see NormalizeIMDBID).
type MediaIDs struct {
	IMDB string `json:"imdb,omitempty"`
	TMDB int    `json:"tmdb,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// MediaIdentity identifies a media entity for matching between the local
// library and the remote service.
//
// At least one of IDs.IMDB, IDs.TMDB or (Title and Year) must be populated
// for the identity to be matchable; anything less is permanently
// unmatchable and excluded from sync.
type MediaIdentity struct {
	Title string   `json:"title"`
	Year  int      `json:"year,omitempty"`
	IDs   MediaIDs `json:"ids"`
}

// Matchable reports whether the identity carries enough information to
// participate in matching.
func (m MediaIdentity) Matchable() bool {
	if m.IDs.IMDB != "" || m.IDs.TMDB != 0 {
		return true
	}
	return m.Title != "" && m.Year != 0
}

// String returns a log-friendly description of the identity.
func (m MediaIdentity) String() string {
	imdb := m.IDs.IMDB
	if imdb == "" {
		imdb = "<empty>"
	}
	return fmt.Sprintf("%s (%d) [%s]", m.Title, m.Year, imdb)
}

// NormalizeIMDBID returns the canonical form of an IMDb identifier:
// the prefix "tt" followed by the numeric part zero-left-padded to at
// least 7 digits (e.g. "tt123" -> "tt0000123").
//
// Inputs that do not start with "tt" normalize to the empty string so
// that invalid IDs never match an empty remote ID. The prefix is
// accepted in any case ("TT0137523") and canonicalized to lowercase.
func NormalizeIMDBID(id string) string {
	if len(id) < 2 || !strings.EqualFold(id[:2], "tt") {
		return ""
	}
	digits := id[2:]
	if len(digits) < 7 {
		digits = strings.Repeat("0", 7-len(digits)) + digits
	}
	return "tt" + digits
}

// Matches reports whether two identities denote the same media entity.
//
// When both sides carry a non-empty IMDb ID the comparison is decided by
// the IDs alone, case-insensitively, regardless of title or year.
// Otherwise it falls back to case-insensitive title equality AND exact
// year equality. There is no fuzzy matching: aka-titled items without an
// external ID are expected to stay unmatched.
func Matches(local, remote MediaIdentity) bool {
	localIMDB := NormalizeIMDBID(local.IDs.IMDB)
	remoteIMDB := NormalizeIMDBID(remote.IDs.IMDB)

	if localIMDB != "" && remoteIMDB != "" {
		return strings.EqualFold(localIMDB, remoteIMDB)
	}

	return strings.EqualFold(local.Title, remote.Title) && local.Year == remote.Year
}
