// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package api

import (
	"errors"
	"net/http"

	"github.com/learntrack/learntrack/internal/auth"
	"github.com/learntrack/learntrack/internal/models"
	"github.com/learntrack/learntrack/internal/store"
	"github.com/learntrack/learntrack/internal/suggest"
)

type coachRequest struct {
	Prompt string `json:"prompt" validate:"required,max=4000"`
}

// WeeklyStats handles GET /api/v1/stats/weekly. The optional ?week=
// selects a past week; the default is the current ISO week. A user whose
// snapshot has not been computed yet gets a zero-valued one rather than a
// 404, since "no data yet" is a normal state right after signup.
func (h *Handler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	weekKey := h.currentWeekKey(r)
	stats, err := h.store.GetWeeklyStats(r.Context(), userID, weekKey)
	if errors.Is(err, store.ErrNotFound) {
		stats = &models.WeeklyStats{
			UserID:     userID,
			WeekKey:    weekKey,
			EntityType: models.EntityTypeWeeklyStats,
		}
		respondJSON(w, http.StatusOK, stats)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to read weekly stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// AICoach handles POST /api/v1/ai-coach.
func (h *Handler) AICoach(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserID(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	var req coachRequest
	if !decodeBody(w, r, &req) || !h.validateRequest(w, &req) {
		return
	}

	resp, err := h.coach.Suggest(r.Context(), req.Prompt)
	if errors.Is(err, suggest.ErrRateLimited) {
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "coaching budget exhausted, try again shortly", nil)
		return
	}
	if errors.Is(err, suggest.ErrUpstream) {
		respondError(w, http.StatusBadGateway, codeUpstream, "model endpoint unavailable", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "suggestion failed", err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
