// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/jfairbairn/reelsync/internal/models"
)

// fileItem is the on-disk JSON shape of one library entry.
type fileItem struct {
	Title         string    `json:"title"`
	Year          int       `json:"year,omitempty"`
	IMDBID        string    `json:"imdb_id,omitempty"`
	TMDBID        int       `json:"tmdb_id,omitempty"`
	Watched       bool      `json:"watched"`
	WatchCount    int       `json:"watch_count,omitempty"`
	LastWatchedAt time.Time `json:"last_watched_at,omitempty"`
	Rating        int       `json:"rating,omitempty"`

	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ResumeSeconds   int    `json:"resume_seconds,omitempty"`
	FilePath        string `json:"file_path"`

	Collection *fileCollection `json:"collection,omitempty"`
}

type fileCollection struct {
	MediaType     string    `json:"media_type,omitempty"`
	Resolution    string    `json:"resolution,omitempty"`
	AudioCodec    string    `json:"audio,omitempty"`
	AudioChannels string    `json:"audio_channels,omitempty"`
	Is3D          bool      `json:"3d,omitempty"`
	AddedAt       time.Time `json:"added_at,omitempty"`
}

// FileProvider serves a local catalogue from a JSON file. Mutations
// update the in-memory items and rewrite the file atomically. Internal
// IDs are 1-based positions in the file; they stay stable for the life
// of the process but are not durable identifiers across edits.
type FileProvider struct {
	path string

	mu    sync.Mutex
	items []fileItem
}

// NewFileProvider loads the catalogue at path. The file must exist and
// parse; an empty array is a valid (empty) catalogue.
func NewFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library file: %w", err)
	}
	var items []fileItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse library file %s: %w", path, err)
	}
	return &FileProvider{path: path, items: items}, nil
}

// Name identifies the provider in logs and summaries.
func (p *FileProvider) Name() string { return "jsonfile" }

// ListAll returns a snapshot of every item in the catalogue.
func (p *FileProvider) ListAll(ctx context.Context) ([]models.LocalItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.LocalItem, 0, len(p.items))
	for i := range p.items {
		out = append(out, p.toLocal(i))
	}
	return out, nil
}

// SetWatched updates the watched flag and play count of one item.
func (p *FileProvider) SetWatched(ctx context.Context, internalID int, watched bool, playCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, err := p.byID(internalID)
	if err != nil {
		return err
	}
	item.Watched = watched
	item.WatchCount = playCount
	if !watched {
		item.LastWatchedAt = time.Time{}
	}
	return p.persist()
}

// SetLastWatched records the watch date on an item.
func (p *FileProvider) SetLastWatched(ctx context.Context, internalID int, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, err := p.byID(internalID)
	if err != nil {
		return err
	}
	item.LastWatchedAt = at
	return p.persist()
}

// SetResumePosition stores an absolute resume point in seconds. Zero
// clears any stored resume point.
func (p *FileProvider) SetResumePosition(ctx context.Context, internalID int, seconds int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, err := p.byID(internalID)
	if err != nil {
		return err
	}
	item.ResumeSeconds = seconds
	return p.persist()
}

// Lookup resolves a playing file back to a library item.
func (p *FileProvider) Lookup(ctx context.Context, filePath string) (*models.LocalItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.items {
		if p.items[i].FilePath == filePath {
			item := p.toLocal(i)
			return &item, nil
		}
	}
	return nil, nil
}

// ListRatings returns the locally rated items. Unrated items (rating
// zero) are omitted.
func (p *FileProvider) ListRatings(ctx context.Context) ([]models.RatingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.RatingEntry
	for i := range p.items {
		if p.items[i].Rating == 0 {
			continue
		}
		out = append(out, models.RatingEntry{
			Identity: p.identity(i),
			Rating:   p.items[i].Rating,
			RatedAt:  p.items[i].LastWatchedAt,
		})
	}
	return out, nil
}

func (p *FileProvider) identity(i int) models.MediaIdentity {
	it := p.items[i]
	return models.MediaIdentity{
		Title: it.Title,
		Year:  it.Year,
		IDs: models.MediaIDs{
			IMDB: models.NormalizeIMDBID(it.IMDBID),
			TMDB: it.TMDBID,
		},
	}
}

func (p *FileProvider) toLocal(i int) models.LocalItem {
	it := p.items[i]
	local := models.LocalItem{
		Identity:        p.identity(i),
		InternalID:      i + 1,
		Watched:         it.Watched,
		WatchCount:      it.WatchCount,
		LastWatchedAt:   it.LastWatchedAt,
		DurationSeconds: it.DurationSeconds,
		ResumeSeconds:   it.ResumeSeconds,
		FilePath:        it.FilePath,
	}
	if it.Collection != nil {
		local.Collection = &models.CollectionInfo{
			MediaType:     it.Collection.MediaType,
			Resolution:    it.Collection.Resolution,
			AudioCodec:    it.Collection.AudioCodec,
			AudioChannels: it.Collection.AudioChannels,
			Is3D:          it.Collection.Is3D,
			AddedAt:       it.Collection.AddedAt,
		}
	}
	return local
}

// byID resolves an internal ID to the backing item. Caller holds p.mu.
func (p *FileProvider) byID(internalID int) (*fileItem, error) {
	idx := internalID - 1
	if idx < 0 || idx >= len(p.items) {
		return nil, fmt.Errorf("unknown library item %d", internalID)
	}
	return &p.items[idx], nil
}

// persist rewrites the library file atomically. Caller holds p.mu.
func (p *FileProvider) persist() error {
	data, err := json.MarshalIndent(p.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".library-*.json")
	if err != nil {
		return fmt.Errorf("create temp library file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write library file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close library file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace library file: %w", err)
	}
	return nil
}
