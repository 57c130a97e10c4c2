// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/learntrack/learntrack/internal/metrics"
	"github.com/learntrack/learntrack/internal/models"
)

// UpsertWeeklyStats fully replaces the snapshot for (userID, weekKey).
// There are no merge or increment semantics; repeating the write with the
// same payload is a no-op from the reader's point of view.
func (s *Store) UpsertWeeklyStats(ctx context.Context, stats *models.WeeklyStats) (err error) {
	defer func() { metrics.RecordStoreOp("upsert_weekly_stats", err) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if stats.UserID == "" || stats.WeekKey == "" {
		return fmt.Errorf("weekly stats require userId and weekKey")
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal weekly stats: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(statsKey(stats.UserID, stats.WeekKey), data)
	})
	if err != nil {
		return fmt.Errorf("upsert weekly stats %s/%s: %w", stats.UserID, stats.WeekKey, err)
	}
	return nil
}

// GetWeeklyStats reads the snapshot for (userID, weekKey).
// Returns ErrNotFound when no snapshot has been computed yet.
func (s *Store) GetWeeklyStats(ctx context.Context, userID, weekKey string) (stats *models.WeeklyStats, err error) {
	defer func() { metrics.RecordStoreOp("get_weekly_stats", err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out models.WeeklyStats
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(statsKey(userID, weekKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get weekly stats: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
