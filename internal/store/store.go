// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/learntrack/learntrack/internal/config"
)

// Sentinel errors returned by store operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// Store is the BadgerDB-backed resource store. It is safe for concurrent
// use; Badger provides snapshot isolation per transaction.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open opens (or creates) the store at the configured location.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	// Badger's default logger writes to stderr outside our pipeline.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Dir, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database. Safe to call more than once and
// safe to race with in-flight operations.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Healthy reports whether the store can serve reads.
func (s *Store) Healthy() bool {
	return !s.closed.Load() && !s.db.IsClosed()
}

// RunGC triggers one round of Badger value-log garbage collection.
// Called periodically by the supervised GC service; a return of
// badger.ErrNoRewrite means there was nothing to collect.
func (s *Store) RunGC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.RunValueLogGC(0.5)
}
