// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/learntrack/learntrack/internal/metrics"
	"github.com/learntrack/learntrack/internal/models"
)

// ListOptions controls pagination of per-user range reads.
type ListOptions struct {
	// Limit caps the number of records returned. Zero means no cap.
	Limit int

	// StartAfter is the continuation token from a previous page: the last
	// resource id already seen. The scan resumes just past it.
	StartAfter string
}

// PutResource writes a resource record, replacing any prior version.
func (s *Store) PutResource(ctx context.Context, rec *models.ResourceRecord) (err error) {
	defer func() { metrics.RecordStoreOp("put_resource", err) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if err = rec.Validate(); err != nil {
		return fmt.Errorf("validate resource: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resourceKey(rec.UserID, rec.ResourceID), data)
	})
	if err != nil {
		return fmt.Errorf("put resource %s/%s: %w", rec.UserID, rec.ResourceID, err)
	}
	return nil
}

// GetResource reads one resource record. Returns ErrNotFound when absent.
func (s *Store) GetResource(ctx context.Context, userID, resourceID string) (rec *models.ResourceRecord, err error) {
	defer func() { metrics.RecordStoreOp("get_resource", err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out models.ResourceRecord
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resourceKey(userID, resourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get resource: %w", err)
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

// ListResources returns one page of a user's resource records in key order,
// plus a continuation token. An empty token means the scan is complete.
func (s *Store) ListResources(ctx context.Context, userID string, opts ListOptions) (recs []models.ResourceRecord, next string, err error) {
	defer func() { metrics.RecordStoreOp("list_resources", err) }()

	if s.closed.Load() {
		return nil, "", ErrClosed
	}

	prefix := resourcePrefix(userID)

	err = s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		// Resume just past the last key of the previous page. The \x00
		// suffix seeks strictly beyond the token's own key.
		start := prefix
		if opts.StartAfter != "" {
			start = append(resourceKey(userID, opts.StartAfter), 0x00)
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var rec models.ResourceRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode resource at %s: %w", it.Item().Key(), err)
			}
			recs = append(recs, rec)

			if opts.Limit > 0 && len(recs) == opts.Limit {
				it.Next()
				if it.ValidForPrefix(prefix) {
					next = rec.ResourceID
				}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return recs, next, nil
}

// DeleteResource removes a resource and all of its progress entries.
// Returns ErrNotFound when the resource does not exist.
func (s *Store) DeleteResource(ctx context.Context, userID, resourceID string) (err error) {
	defer func() { metrics.RecordStoreOp("delete_resource", err) }()

	if s.closed.Load() {
		return ErrClosed
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := resourceKey(userID, resourceID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get resource: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete resource: %w", err)
		}

		// Progress entries live and die with their parent resource.
		prefix := progressPrefix(userID, resourceID)
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		var progressKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			progressKeys = append(progressKeys, it.Item().KeyCopy(nil))
		}
		for _, k := range progressKeys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete progress entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// countPrefix is a test helper shared by store tests.
func (s *Store) countPrefix(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if bytes.HasPrefix(it.Item().Key(), prefix) {
				n++
			}
		}
		return nil
	})
	return n, err
}
