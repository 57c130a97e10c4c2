// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package models defines the domain records shared across the store, the
// HTTP API, and the weekly stats pipeline: learning resources, append-only
// progress entries, and weekly aggregate snapshots.
package models
