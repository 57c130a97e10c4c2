// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package store persists resources, progress entries and weekly stats
// snapshots in BadgerDB using a single key-ordered table:
//
//	USER#<userId>#RESOURCE#<resourceId>            -> ResourceRecord
//	USER#<userId>#PROGRESS#<resourceId>#<rfc3339>  -> ProgressEntry
//	USER#<userId>#STATS#WEEKLY#<weekKey>           -> WeeklyStats
//
// All records for a user share the USER# prefix, so per-user reads are
// prefix scans. Values are JSON.
package store
