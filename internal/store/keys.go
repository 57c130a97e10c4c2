// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package store

import (
	"strings"
	"time"
)

// Key segment prefixes. The layout mirrors a single-table design keyed by
// (partition, sort): the user id is the partition, the typed suffix is the
// sort key.
const (
	userSeg     = "USER#"
	resourceSeg = "#RESOURCE#"
	progressSeg = "#PROGRESS#"
	statsSeg    = "#STATS#WEEKLY#"
)

// idEscaper keeps caller-supplied ids from colliding with the '#' key
// delimiters. User ids come from tokens and resource ids from clients, so
// neither can be trusted to be delimiter-free. '%' is escaped as well to
// keep the mapping injective.
var idEscaper = strings.NewReplacer("%", "%25", "#", "%23")

// progressTimeFormat orders progress keys chronologically within a resource.
const progressTimeFormat = time.RFC3339Nano

func resourcePrefix(userID string) []byte {
	return []byte(userSeg + idEscaper.Replace(userID) + resourceSeg)
}

func resourceKey(userID, resourceID string) []byte {
	return []byte(userSeg + idEscaper.Replace(userID) + resourceSeg + idEscaper.Replace(resourceID))
}

func progressPrefix(userID, resourceID string) []byte {
	return []byte(userSeg + idEscaper.Replace(userID) + progressSeg + idEscaper.Replace(resourceID) + "#")
}

func progressKey(userID, resourceID string, at time.Time) []byte {
	return []byte(userSeg + idEscaper.Replace(userID) + progressSeg + idEscaper.Replace(resourceID) + "#" + at.UTC().Format(progressTimeFormat))
}

func statsKey(userID, weekKey string) []byte {
	return []byte(userSeg + idEscaper.Replace(userID) + statsSeg + weekKey)
}
