// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package sync

import "strings"

// Blocklist excludes library items from sync by path. Folder entries
// match by containment, filename entries by exact path. All comparison
// is case-insensitive on normalized (forward-slash) paths, so Windows
// and POSIX style library paths behave the same.
type Blocklist struct {
	folders   []string
	filenames map[string]struct{}
}

// NewBlocklist builds a blocklist from configured folder and filename
// lists. Empty entries are dropped.
func NewBlocklist(folders, filenames []string) *Blocklist {
	b := &Blocklist{
		filenames: make(map[string]struct{}, len(filenames)),
	}
	for _, f := range folders {
		if norm := normalizePath(f); norm != "" {
			b.folders = append(b.folders, norm)
		}
	}
	for _, f := range filenames {
		if norm := normalizePath(f); norm != "" {
			b.filenames[norm] = struct{}{}
		}
	}
	return b
}

// Blocked reports whether the given file path is excluded from sync.
func (b *Blocklist) Blocked(path string) bool {
	if b == nil {
		return false
	}
	norm := normalizePath(path)
	if norm == "" {
		return false
	}
	if _, ok := b.filenames[norm]; ok {
		return true
	}
	for _, folder := range b.folders {
		if strings.Contains(norm, folder) {
			return true
		}
	}
	return false
}

// Empty reports whether the blocklist has no entries at all.
func (b *Blocklist) Empty() bool {
	return b == nil || (len(b.folders) == 0 && len(b.filenames) == 0)
}

func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
}
