// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package models

import "time"

// EntityTypeWeeklyStats tags stored weekly snapshots, mirroring the
// entityType attribute the mobile client filters on.
const EntityTypeWeeklyStats = "weekly_stats"

// WeeklyStats is one user's aggregate snapshot for a single ISO week.
// Identity is (UserID, WeekKey). The aggregator fully replaces the row on
// every recomputation; there are no increment semantics.
//
// Invariant: TotalResources == Active + Completed at recomputation time.
type WeeklyStats struct {
	UserID             string    `json:"userId"`
	WeekKey            string    `json:"weekKey"`
	TotalResources     int       `json:"totalResources"`
	Active             int       `json:"active"`
	Completed          int       `json:"completed"`
	HoursSpentThisWeek float64   `json:"hoursSpentThisWeek"`
	UpdatedAt          time.Time `json:"updatedAt"`
	EntityType         string    `json:"entityType"`
}
