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

// AppendProgress stores a progress entry and folds its delta into the
// parent resource's MinutesSpent and UpdatedAt in the same transaction.
// MinutesSpent is therefore monotonically non-decreasing. Returns the
// updated resource record, or ErrNotFound when the resource is missing.
func (s *Store) AppendProgress(ctx context.Context, entry *models.ProgressEntry) (rec *models.ResourceRecord, err error) {
	defer func() { metrics.RecordStoreOp("append_progress", err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err = entry.Validate(); err != nil {
		return nil, fmt.Errorf("validate progress entry: %w", err)
	}

	var updated models.ResourceRecord
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(resourceKey(entry.UserID, entry.ResourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get resource: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &updated)
		}); err != nil {
			return fmt.Errorf("decode resource: %w", err)
		}

		updated.MinutesSpent += entry.DeltaMinutes
		if entry.ProgressAt.After(updated.UpdatedAt) {
			updated.UpdatedAt = entry.ProgressAt
		}

		recData, err := json.Marshal(&updated)
		if err != nil {
			return fmt.Errorf("marshal resource: %w", err)
		}
		if err := txn.Set(resourceKey(entry.UserID, entry.ResourceID), recData); err != nil {
			return fmt.Errorf("put resource: %w", err)
		}

		entryData, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal progress entry: %w", err)
		}
		return txn.Set(progressKey(entry.UserID, entry.ResourceID, entry.ProgressAt), entryData)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListProgress returns a resource's progress entries in chronological order.
func (s *Store) ListProgress(ctx context.Context, userID, resourceID string) (entries []models.ProgressEntry, err error) {
	defer func() { metrics.RecordStoreOp("list_progress", err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	prefix := progressPrefix(userID, resourceID)
	err = s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var entry models.ProgressEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode progress entry at %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
