// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/learntrack/learntrack/internal/config"
	"github.com/learntrack/learntrack/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResource(userID, resourceID string) *models.ResourceRecord {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	return &models.ResourceRecord{
		UserID:       userID,
		ResourceID:   resourceID,
		Title:        "Learning Go",
		Type:         models.ResourceTypeBook,
		Status:       models.ResourceStatusActive,
		MinutesSpent: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestResourceCRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("put then get round-trips", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		rec.MinutesSpent = 42

		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		got, err := s.GetResource(ctx, "u1", "r1")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if got.Title != rec.Title || got.MinutesSpent != 42 || got.Status != rec.Status {
			t.Errorf("round-trip mismatch: got %+v", got)
		}
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := s.GetResource(ctx, "u1", "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put replaces prior version", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		rec.Status = models.ResourceStatusCompleted
		rec.Title = "Learning Go, finished"
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource update: %v", err)
		}

		got, err := s.GetResource(ctx, "u1", "r1")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if got.Status != models.ResourceStatusCompleted || got.Title != "Learning Go, finished" {
			t.Errorf("expected replaced record, got %+v", got)
		}
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		rec.Type = "podcast"
		if err := s.PutResource(ctx, rec); err == nil {
			t.Error("expected validation error for unknown type")
		}
	})

	t.Run("resources are isolated per user", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.PutResource(ctx, testResource("alice", "r1")); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		if _, err := s.GetResource(ctx, "bob", "r1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for other user, got %v", err)
		}
	})
}

func TestListResources(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, s *Store, userID string, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			rec := testResource(userID, fmt.Sprintf("r%02d", i))
			if err := s.PutResource(ctx, rec); err != nil {
				t.Fatalf("seed PutResource: %v", err)
			}
		}
	}

	t.Run("returns all records in key order without a limit", func(t *testing.T) {
		s := openTestStore(t)
		seed(t, s, "u1", 5)

		recs, next, err := s.ListResources(ctx, "u1", ListOptions{})
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		if len(recs) != 5 || next != "" {
			t.Fatalf("got %d records, token %q; want 5 and empty token", len(recs), next)
		}
		for i, rec := range recs {
			if want := fmt.Sprintf("r%02d", i); rec.ResourceID != want {
				t.Errorf("record %d = %s, want %s", i, rec.ResourceID, want)
			}
		}
	})

	t.Run("paginates with continuation tokens", func(t *testing.T) {
		s := openTestStore(t)
		seed(t, s, "u1", 7)

		var all []string
		token := ""
		pages := 0
		for {
			recs, next, err := s.ListResources(ctx, "u1", ListOptions{Limit: 3, StartAfter: token})
			if err != nil {
				t.Fatalf("ListResources page %d: %v", pages, err)
			}
			pages++
			for _, rec := range recs {
				all = append(all, rec.ResourceID)
			}
			if next == "" {
				break
			}
			token = next
		}

		if pages != 3 {
			t.Errorf("expected 3 pages for 7 records at limit 3, got %d", pages)
		}
		if len(all) != 7 {
			t.Fatalf("expected 7 records across pages, got %d: %v", len(all), all)
		}
		for i, id := range all {
			if want := fmt.Sprintf("r%02d", i); id != want {
				t.Errorf("position %d = %s, want %s (duplicate or gap)", i, id, want)
			}
		}
	})

	t.Run("exact multiple of limit ends with empty token", func(t *testing.T) {
		s := openTestStore(t)
		seed(t, s, "u1", 6)

		recs, next, err := s.ListResources(ctx, "u1", ListOptions{Limit: 3, StartAfter: "r02"})
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		if len(recs) != 3 || next != "" {
			t.Errorf("got %d records, token %q; want 3 and empty token", len(recs), next)
		}
	})

	t.Run("empty user yields empty page", func(t *testing.T) {
		s := openTestStore(t)
		recs, next, err := s.ListResources(ctx, "nobody", ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		if len(recs) != 0 || next != "" {
			t.Errorf("expected empty page, got %d records, token %q", len(recs), next)
		}
	})

	t.Run("does not leak other users' records", func(t *testing.T) {
		s := openTestStore(t)
		seed(t, s, "alice", 3)
		seed(t, s, "alicia", 3) // prefix of the user id must not match

		recs, _, err := s.ListResources(ctx, "alice", ListOptions{})
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("expected 3 records for alice, got %d", len(recs))
		}
		for _, rec := range recs {
			if rec.UserID != "alice" {
				t.Errorf("leaked record for user %s", rec.UserID)
			}
		}
	})
}

func TestDeleteResource(t *testing.T) {
	ctx := context.Background()

	t.Run("delete removes resource and its progress entries", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.PutResource(ctx, testResource("u1", "r1")); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		base := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			entry := &models.ProgressEntry{
				UserID:       "u1",
				ResourceID:   "r1",
				DeltaMinutes: 10,
				ProgressAt:   base.Add(time.Duration(i) * time.Hour),
			}
			if _, err := s.AppendProgress(ctx, entry); err != nil {
				t.Fatalf("AppendProgress: %v", err)
			}
		}

		if err := s.DeleteResource(ctx, "u1", "r1"); err != nil {
			t.Fatalf("DeleteResource: %v", err)
		}

		if _, err := s.GetResource(ctx, "u1", "r1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("resource still readable after delete: %v", err)
		}
		n, err := s.countPrefix(progressPrefix("u1", "r1"))
		if err != nil {
			t.Fatalf("countPrefix: %v", err)
		}
		if n != 0 {
			t.Errorf("expected progress entries removed, %d remain", n)
		}
	})

	t.Run("delete missing returns ErrNotFound", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.DeleteResource(ctx, "u1", "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestIDsWithDelimiterBytes(t *testing.T) {
	ctx := context.Background()

	appendOne := func(t *testing.T, s *Store, userID, resourceID string) {
		t.Helper()
		if _, err := s.AppendProgress(ctx, &models.ProgressEntry{
			UserID:       userID,
			ResourceID:   resourceID,
			DeltaMinutes: 10,
			ProgressAt:   time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("AppendProgress %s/%s: %v", userID, resourceID, err)
		}
	}

	t.Run("progress scans stay within one resource", func(t *testing.T) {
		s := openTestStore(t)
		for _, id := range []string{"r", "r#x"} {
			if err := s.PutResource(ctx, testResource("u1", id)); err != nil {
				t.Fatalf("PutResource %s: %v", id, err)
			}
			appendOne(t, s, "u1", id)
		}

		entries, err := s.ListProgress(ctx, "u1", "r")
		if err != nil {
			t.Fatalf("ListProgress: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry for r, got %d", len(entries))
		}
		if entries[0].ResourceID != "r" {
			t.Errorf("entry belongs to %s, want r", entries[0].ResourceID)
		}
	})

	t.Run("delete does not cascade into a sibling resource", func(t *testing.T) {
		s := openTestStore(t)
		for _, id := range []string{"r", "r#x"} {
			if err := s.PutResource(ctx, testResource("u1", id)); err != nil {
				t.Fatalf("PutResource %s: %v", id, err)
			}
			appendOne(t, s, "u1", id)
		}

		if err := s.DeleteResource(ctx, "u1", "r"); err != nil {
			t.Fatalf("DeleteResource: %v", err)
		}

		if _, err := s.GetResource(ctx, "u1", "r#x"); err != nil {
			t.Errorf("sibling resource lost: %v", err)
		}
		entries, err := s.ListProgress(ctx, "u1", "r#x")
		if err != nil {
			t.Fatalf("ListProgress: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected sibling's entry to survive, got %d", len(entries))
		}
	})

	t.Run("user ids do not bleed across the partition delimiter", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.PutResource(ctx, testResource("u", "r1")); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		// A token subject is free to contain '#'.
		if err := s.PutResource(ctx, testResource("u#RESOURCE#evil", "r1")); err != nil {
			t.Fatalf("PutResource: %v", err)
		}

		recs, _, err := s.ListResources(ctx, "u", ListOptions{})
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		if len(recs) != 1 || recs[0].UserID != "u" {
			t.Fatalf("expected only u's record, got %+v", recs)
		}
	})

	t.Run("escaped ids round-trip", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("idp|user#42", "notes%23#2025")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}
		got, err := s.GetResource(ctx, "idp|user#42", "notes%23#2025")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if got.ResourceID != rec.ResourceID || got.UserID != rec.UserID {
			t.Errorf("round-trip mismatch: %+v", got)
		}
	})
}

func TestAppendProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("folds delta into the resource", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}

		later := rec.UpdatedAt.Add(2 * time.Hour)
		updated, err := s.AppendProgress(ctx, &models.ProgressEntry{
			UserID:       "u1",
			ResourceID:   "r1",
			DeltaMinutes: 25,
			Note:         "chapter 3",
			ProgressAt:   later,
		})
		if err != nil {
			t.Fatalf("AppendProgress: %v", err)
		}
		if updated.MinutesSpent != 25 {
			t.Errorf("minutes = %d, want 25", updated.MinutesSpent)
		}
		if !updated.UpdatedAt.Equal(later) {
			t.Errorf("updatedAt = %s, want %s", updated.UpdatedAt, later)
		}

		// The persisted record matches the returned one.
		got, err := s.GetResource(ctx, "u1", "r1")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if got.MinutesSpent != 25 {
			t.Errorf("persisted minutes = %d, want 25", got.MinutesSpent)
		}
	})

	t.Run("minutes accumulate across entries", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}

		base := rec.UpdatedAt
		for i, delta := range []int{10, 20, 5} {
			if _, err := s.AppendProgress(ctx, &models.ProgressEntry{
				UserID:       "u1",
				ResourceID:   "r1",
				DeltaMinutes: delta,
				ProgressAt:   base.Add(time.Duration(i+1) * time.Hour),
			}); err != nil {
				t.Fatalf("AppendProgress %d: %v", i, err)
			}
		}

		got, err := s.GetResource(ctx, "u1", "r1")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if got.MinutesSpent != 35 {
			t.Errorf("minutes = %d, want 35", got.MinutesSpent)
		}
	})

	t.Run("an older entry never rewinds UpdatedAt", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}

		earlier := rec.UpdatedAt.Add(-24 * time.Hour)
		updated, err := s.AppendProgress(ctx, &models.ProgressEntry{
			UserID:       "u1",
			ResourceID:   "r1",
			DeltaMinutes: 15,
			ProgressAt:   earlier,
		})
		if err != nil {
			t.Fatalf("AppendProgress: %v", err)
		}
		if updated.MinutesSpent != 15 {
			t.Errorf("minutes = %d, want 15", updated.MinutesSpent)
		}
		if !updated.UpdatedAt.Equal(rec.UpdatedAt) {
			t.Errorf("updatedAt rewound to %s", updated.UpdatedAt)
		}
	})

	t.Run("missing resource returns ErrNotFound", func(t *testing.T) {
		s := openTestStore(t)
		_, err := s.AppendProgress(ctx, &models.ProgressEntry{
			UserID:       "u1",
			ResourceID:   "nope",
			DeltaMinutes: 10,
			ProgressAt:   time.Now().UTC(),
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("entries list back in chronological order", func(t *testing.T) {
		s := openTestStore(t)
		rec := testResource("u1", "r1")
		if err := s.PutResource(ctx, rec); err != nil {
			t.Fatalf("PutResource: %v", err)
		}

		base := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
		// Insert out of order; the timestamp key sorts them.
		for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
			if _, err := s.AppendProgress(ctx, &models.ProgressEntry{
				UserID:       "u1",
				ResourceID:   "r1",
				DeltaMinutes: 10,
				ProgressAt:   base.Add(offset),
			}); err != nil {
				t.Fatalf("AppendProgress: %v", err)
			}
		}

		entries, err := s.ListProgress(ctx, "u1", "r1")
		if err != nil {
			t.Fatalf("ListProgress: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].ProgressAt.Before(entries[i-1].ProgressAt) {
				t.Errorf("entries out of order at %d: %s before %s",
					i, entries[i].ProgressAt, entries[i-1].ProgressAt)
			}
		}
	})
}

func TestWeeklyStats(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert then get round-trips", func(t *testing.T) {
		s := openTestStore(t)
		stats := &models.WeeklyStats{
			UserID:             "u1",
			WeekKey:            "2025-W24",
			TotalResources:     3,
			Active:             2,
			Completed:          1,
			HoursSpentThisWeek: 1.5,
			UpdatedAt:          time.Date(2025, time.June, 11, 10, 0, 0, 0, time.UTC),
			EntityType:         models.EntityTypeWeeklyStats,
		}
		if err := s.UpsertWeeklyStats(ctx, stats); err != nil {
			t.Fatalf("UpsertWeeklyStats: %v", err)
		}

		got, err := s.GetWeeklyStats(ctx, "u1", "2025-W24")
		if err != nil {
			t.Fatalf("GetWeeklyStats: %v", err)
		}
		if got.TotalResources != 3 || got.HoursSpentThisWeek != 1.5 || got.EntityType != models.EntityTypeWeeklyStats {
			t.Errorf("round-trip mismatch: %+v", got)
		}
	})

	t.Run("upsert fully replaces the snapshot", func(t *testing.T) {
		s := openTestStore(t)
		first := &models.WeeklyStats{UserID: "u1", WeekKey: "2025-W24", TotalResources: 5, HoursSpentThisWeek: 2.0}
		if err := s.UpsertWeeklyStats(ctx, first); err != nil {
			t.Fatalf("first upsert: %v", err)
		}
		second := &models.WeeklyStats{UserID: "u1", WeekKey: "2025-W24", TotalResources: 1, HoursSpentThisWeek: 0.1}
		if err := s.UpsertWeeklyStats(ctx, second); err != nil {
			t.Fatalf("second upsert: %v", err)
		}

		got, err := s.GetWeeklyStats(ctx, "u1", "2025-W24")
		if err != nil {
			t.Fatalf("GetWeeklyStats: %v", err)
		}
		if got.TotalResources != 1 || got.HoursSpentThisWeek != 0.1 {
			t.Errorf("expected replaced snapshot, got %+v", got)
		}
	})

	t.Run("weeks are independent keys", func(t *testing.T) {
		s := openTestStore(t)
		for _, wk := range []string{"2025-W23", "2025-W24"} {
			if err := s.UpsertWeeklyStats(ctx, &models.WeeklyStats{UserID: "u1", WeekKey: wk, TotalResources: 1}); err != nil {
				t.Fatalf("upsert %s: %v", wk, err)
			}
		}
		if _, err := s.GetWeeklyStats(ctx, "u1", "2025-W23"); err != nil {
			t.Errorf("expected W23 snapshot to survive W24 write: %v", err)
		}
	})

	t.Run("missing snapshot returns ErrNotFound", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := s.GetWeeklyStats(ctx, "u1", "2025-W01"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects snapshot without identifiers", func(t *testing.T) {
		s := openTestStore(t)
		if err := s.UpsertWeeklyStats(ctx, &models.WeeklyStats{UserID: "u1"}); err == nil {
			t.Error("expected error for missing week key")
		}
	})
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.PutResource(ctx, testResource("u1", "r1")); !errors.Is(err, ErrClosed) {
		t.Errorf("PutResource after close: %v", err)
	}
	if _, err := s.GetResource(ctx, "u1", "r1"); !errors.Is(err, ErrClosed) {
		t.Errorf("GetResource after close: %v", err)
	}
	if _, _, err := s.ListResources(ctx, "u1", ListOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("ListResources after close: %v", err)
	}
	if s.Healthy() {
		t.Error("closed store reports healthy")
	}
	// Double close is a no-op.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestCloseConcurrentWithOperations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.PutResource(ctx, testResource("u1", "r1")); err != nil {
		t.Fatalf("PutResource: %v", err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				// Either outcome is fine; the store just must not race.
				_ = s.Healthy()
				if _, err := s.GetResource(ctx, "u1", "r1"); err != nil && !errors.Is(err, ErrClosed) {
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_ = s.Close()
	}()

	close(start)
	wg.Wait()

	if s.Healthy() {
		t.Error("closed store reports healthy")
	}
}
