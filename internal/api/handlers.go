// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package api serves the HTTP surface: resource CRUD, progress appends,
// weekly stats reads, and the ai-coach proxy. Every mutation publishes a
// change notification so the stats worker recomputes the owner's week.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/learntrack/learntrack/internal/eventbus"
	"github.com/learntrack/learntrack/internal/models"
	"github.com/learntrack/learntrack/internal/statsworker"
	"github.com/learntrack/learntrack/internal/store"
	"github.com/learntrack/learntrack/internal/suggest"
)

// ResourceStore is the store surface the handlers use.
type ResourceStore interface {
	PutResource(ctx context.Context, rec *models.ResourceRecord) error
	GetResource(ctx context.Context, userID, resourceID string) (*models.ResourceRecord, error)
	ListResources(ctx context.Context, userID string, opts store.ListOptions) ([]models.ResourceRecord, string, error)
	DeleteResource(ctx context.Context, userID, resourceID string) error
	AppendProgress(ctx context.Context, entry *models.ProgressEntry) (*models.ResourceRecord, error)
	ListProgress(ctx context.Context, userID, resourceID string) ([]models.ProgressEntry, error)
	GetWeeklyStats(ctx context.Context, userID, weekKey string) (*models.WeeklyStats, error)
	Healthy() bool
}

// ChangePublisher publishes change notifications for the stats pipeline.
type ChangePublisher interface {
	PublishChange(ctx context.Context, topic string, event *eventbus.ChangeEvent) error
}

// Coach answers study-coaching prompts.
type Coach interface {
	Suggest(ctx context.Context, prompt string) (*suggest.Response, error)
}

// Handler holds the dependencies behind the HTTP routes.
type Handler struct {
	store     ResourceStore
	publisher ChangePublisher
	coach     Coach
	topic     string
	validate  *validator.Validate
	now       func() time.Time
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Store     ResourceStore
	Publisher ChangePublisher
	Coach     Coach

	// Topic is the subject change notifications are published on.
	Topic string

	// Now supplies the clock; tests pin it. Default time.Now.
	Now func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		coach:     cfg.Coach,
		topic:     cfg.Topic,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       cfg.Now,
	}
}

// validateRequest runs struct validation and writes the 400 itself.
// Returns false when the request was rejected.
func (h *Handler) validateRequest(w http.ResponseWriter, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		respondError(w, http.StatusBadRequest, codeValidation,
			"validation failed on field "+verrs[0].Field(), nil)
		return false
	}
	respondError(w, http.StatusBadRequest, codeValidation, "validation failed", err)
	return false
}

// publishChange emits one notification for a completed mutation. The store
// write has already happened; a publish failure is surfaced so the client
// retries and the stats pipeline is not silently starved.
func (h *Handler) publishChange(ctx context.Context, w http.ResponseWriter, detailType, userID, resourceID string) bool {
	event := eventbus.NewChangeEvent(detailType, userID, resourceID, h.now())
	if err := h.publisher.PublishChange(ctx, h.topic, event); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal,
			"resource saved but change notification failed, retry the request", err)
		return false
	}
	return true
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady reports whether the store can serve requests.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.store.Healthy() {
		respondError(w, http.StatusServiceUnavailable, codeInternal, "store not ready", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// currentWeekKey resolves the requested week, defaulting to the current one.
func (h *Handler) currentWeekKey(r *http.Request) string {
	if wk := r.URL.Query().Get("week"); wk != "" {
		return wk
	}
	return statsworker.WeekKey(h.now())
}
