// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package statsworker

import (
	"fmt"
	"time"
)

// WeekKey returns the ISO-8601 week identifier ("2025-W01") for the week
// containing t, computed in UTC.
//
// The date is shifted to the Thursday of its own ISO week before the year
// and week number are read off. That anchor is what attributes the last
// days of December and the first days of January to the right ISO year:
// 2024-12-31 belongs to 2025-W01, 2021-01-01 to 2020-W53.
func WeekKey(t time.Time) string {
	d := midnightUTC(t)
	thursday := d.AddDate(0, 0, 4-isoWeekday(d))

	yearStart := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(yearStart).Hours() / 24)
	week := days/7 + 1

	return fmt.Sprintf("%d-W%02d", thursday.Year(), week)
}

// WeekStart returns the Monday 00:00:00 UTC beginning the ISO week that
// contains t.
//
// This is deliberately not derived from WeekKey: the Thursday anchor above
// exists only for year attribution, while the minutes filter needs the
// plain Monday boundary of the current week.
func WeekStart(t time.Time) time.Time {
	d := midnightUTC(t)
	return d.AddDate(0, 0, -(isoWeekday(d) - 1))
}

// isoWeekday maps time.Weekday (Sunday=0) to ISO numbering (Monday=1,
// Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
