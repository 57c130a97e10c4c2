// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package statsworker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/learntrack/learntrack/internal/metrics"
	"github.com/learntrack/learntrack/internal/models"
	"github.com/learntrack/learntrack/internal/store"
)

// StatsStore is the slice of the store the aggregator needs: a paginated
// per-user range read and a snapshot upsert.
type StatsStore interface {
	ListResources(ctx context.Context, userID string, opts store.ListOptions) ([]models.ResourceRecord, string, error)
	UpsertWeeklyStats(ctx context.Context, stats *models.WeeklyStats) error
}

// AggregatorConfig holds aggregator tuning.
type AggregatorConfig struct {
	// PageSize bounds each store read while re-scanning a user's
	// resources. Default 100.
	PageSize int

	// Now supplies the clock; tests pin it. Default time.Now.
	Now func() time.Time
}

// Aggregator rebuilds per-user weekly stats. Users within a batch are
// processed sequentially; a failure for one user is logged and reported
// without aborting the rest.
type Aggregator struct {
	store    StatsStore
	pageSize int
	now      func() time.Time
	logger   zerolog.Logger
}

// NewAggregator creates an aggregator over the given store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAggregator(st StatsStore, cfg AggregatorConfig, logger zerolog.Logger) *Aggregator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{
		store:    st,
		pageSize: cfg.PageSize,
		now:      cfg.Now,
		logger:   logger,
	}
}

// BatchResult reports the outcome of one batch: which users recomputed
// cleanly and which failed, with the failure cause.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

// ProcessBatch recomputes weekly stats for every distinct user in the
// batch. Per-user failures are isolated: the error is recorded and the
// remaining users still run. The caller decides what to do with each
// user's source messages based on the result.
func (a *Aggregator) ProcessBatch(ctx context.Context, batch *Batch) *BatchResult {
	result := &BatchResult{Failed: make(map[string]error)}

	for _, userID := range batch.Users {
		start := a.now()
		_, err := a.Recompute(ctx, userID)
		metrics.ObserveRecompute(a.now().Sub(start), err)

		if err != nil {
			a.logger.Error().
				Err(err).
				Str("user_id", userID).
				Msg("weekly stats recomputation failed")
			metrics.RecordNotification("failed")
			result.Failed[userID] = err
			continue
		}
		metrics.RecordNotification("processed")
		result.Succeeded = append(result.Succeeded, userID)
	}

	return result
}

// Recompute rebuilds one user's snapshot for the current ISO week from a
// full re-read of their resource records, then upserts it. The result
// reflects a point-in-time view of the store; re-running with unchanged
// data produces an identical row except for UpdatedAt.
//
// minutesThisWeek is an approximation carried over from the original
// system: a resource whose UpdatedAt falls on/after the week's Monday
// contributes its entire accumulated MinutesSpent, not just the delta
// accrued this week. Downstream consumers depend on these semantics.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (*models.WeeklyStats, error) {
	now := a.now().UTC()
	weekKey := WeekKey(now)
	weekStart := WeekStart(now)

	var (
		total, active, completed int
		minutesThisWeek          int
		token                    string
	)

	for {
		recs, next, err := a.store.ListResources(ctx, userID, store.ListOptions{
			Limit:      a.pageSize,
			StartAfter: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list resources for %s: %w", userID, err)
		}

		for i := range recs {
			rec := &recs[i]
			total++
			switch rec.Status {
			case models.ResourceStatusActive:
				active++
			case models.ResourceStatusCompleted:
				completed++
			}
			if !rec.UpdatedAt.IsZero() && !rec.UpdatedAt.Before(weekStart) {
				minutesThisWeek += rec.MinutesSpent
			}
		}

		if next == "" {
			break
		}
		token = next
	}

	stats := &models.WeeklyStats{
		UserID:             userID,
		WeekKey:            weekKey,
		TotalResources:     total,
		Active:             active,
		Completed:          completed,
		HoursSpentThisWeek: roundHours(minutesThisWeek),
		UpdatedAt:          now,
		EntityType:         models.EntityTypeWeeklyStats,
	}

	if err := a.store.UpsertWeeklyStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("upsert weekly stats for %s: %w", userID, err)
	}

	a.logger.Debug().
		Str("user_id", userID).
		Str("week_key", weekKey).
		Int("total", total).
		Float64("hours", stats.HoursSpentThisWeek).
		Msg("weekly stats recomputed")

	return stats, nil
}

// roundHours converts minutes to hours rounded half-away-from-zero to one
// decimal place: 5 minutes -> 0.1, 0 minutes -> 0.0.
func roundHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*10) / 10
}
