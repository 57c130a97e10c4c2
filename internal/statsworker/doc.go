// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package statsworker recomputes per-user weekly learning stats in response
// to resource change notifications.
//
// The pipeline: a batch of notifications arrives from the bus, the affected
// user ids are deduplicated, and each distinct user's aggregate is rebuilt
// from a full re-read of their resource records, then written back as a
// single WeeklyStats snapshot for the current ISO week. Recomputation is a
// pure read-then-write with no increments, so redelivered or duplicated
// notifications are harmless.
package statsworker
