// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

// Package state persists the small amount of engine state that must
// survive restarts: the playback-resume watermark and the account the
// caches were built for. Backed by BadgerDB.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jfairbairn/reelsync/internal/logging"
)

// Key layout. Values are stored as strings; timestamps travel as
// RFC3339 so the database stays inspectable with badger tooling.
const (
	playbackWatermarkKey = "watermark:playback"
	accountKey           = "account:username"
)

// Store persists engine state in BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) the state database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state database at %s: %w", dir, err)
	}
	logging.Debug().Str("dir", dir).Msg("State database opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PlaybackWatermark returns the most recent remote pause timestamp that
// has already been processed. The zero time means no playback sync has
// completed yet and all remote playback entries are new.
func (s *Store) PlaybackWatermark() (time.Time, error) {
	value, err := s.get(playbackWatermarkKey)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse playback watermark %q: %w", value, err)
	}
	return t.UTC(), nil
}

// SetPlaybackWatermark advances the processed-pause watermark. Passing
// the zero time resets it, forcing the next playback sync to consider
// every remote entry.
func (s *Store) SetPlaybackWatermark(t time.Time) error {
	if t.IsZero() {
		return s.delete(playbackWatermarkKey)
	}
	return s.set(playbackWatermarkKey, t.UTC().Format(time.RFC3339))
}

// Account returns the remote username the persisted state belongs to,
// or empty when none has been recorded.
func (s *Store) Account() (string, error) {
	return s.get(accountKey)
}

// SetAccount records the remote username. When the username differs
// from the stored one, the playback watermark is reset in the same
// transaction so state from the previous account cannot gate the new
// account's playback sync.
func (s *Store) SetAccount(username string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		previous, err := getTxn(txn, accountKey)
		if err != nil {
			return err
		}
		if previous == username {
			return nil
		}

		if previous != "" {
			logging.Info().
				Str("from", previous).
				Str("to", username).
				Msg("Account changed, resetting persisted watermarks")
			if err := txn.Delete([]byte(playbackWatermarkKey)); err != nil {
				return fmt.Errorf("reset playback watermark: %w", err)
			}
		}
		return txn.Set([]byte(accountKey), []byte(username))
	})
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := getTxn(txn, key)
		value = v
		return err
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// getTxn reads a key inside a transaction, mapping absence to "".
func getTxn(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}

	var value string
	err = item.Value(func(val []byte) error {
		value = string(val)
		return nil
	})
	return value, err
}

func (s *Store) set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
