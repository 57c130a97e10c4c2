// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learntrack/learntrack/internal/auth"
	"github.com/learntrack/learntrack/internal/eventbus"
	"github.com/learntrack/learntrack/internal/models"
	"github.com/learntrack/learntrack/internal/store"
)

type createResourceRequest struct {
	ResourceID   string `json:"resourceId" validate:"omitempty,max=128"`
	Title        string `json:"title" validate:"required,max=256"`
	Type         string `json:"type" validate:"required,oneof=course book video article"`
	Status       string `json:"status" validate:"omitempty,oneof=active completed"`
	MinutesSpent int    `json:"minutesSpent" validate:"gte=0"`
}

type updateResourceRequest struct {
	Title  *string `json:"title" validate:"omitempty,min=1,max=256"`
	Type   *string `json:"type" validate:"omitempty,oneof=course book video article"`
	Status *string `json:"status" validate:"omitempty,oneof=active completed"`
}

type appendProgressRequest struct {
	DeltaMinutes int        `json:"deltaMinutes" validate:"required,gt=0"`
	Note         string     `json:"note" validate:"max=1024"`
	ProgressAt   *time.Time `json:"progressAt"`
}

type listResourcesResponse struct {
	Items     []models.ResourceRecord `json:"items"`
	NextToken string                  `json:"nextToken,omitempty"`
}

// CreateResource handles POST /api/v1/resources.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	var req createResourceRequest
	if !decodeBody(w, r, &req) || !h.validateRequest(w, &req) {
		return
	}

	if req.ResourceID == "" {
		req.ResourceID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = string(models.ResourceStatusActive)
	}

	now := h.now().UTC()
	rec := &models.ResourceRecord{
		UserID:       userID,
		ResourceID:   req.ResourceID,
		Title:        req.Title,
		Type:         models.ResourceType(req.Type),
		Status:       models.ResourceStatus(req.Status),
		MinutesSpent: req.MinutesSpent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.PutResource(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to save resource", err)
		return
	}
	if !h.publishChange(r.Context(), w, eventbus.DetailTypeResourceCreated, userID, rec.ResourceID) {
		return
	}

	respondJSON(w, http.StatusCreated, rec)
}

// ListResources handles GET /api/v1/resources.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			respondError(w, http.StatusBadRequest, codeValidation, "limit must be 1-200", nil)
			return
		}
		limit = parsed
	}

	recs, next, err := h.store.ListResources(r.Context(), userID, store.ListOptions{
		Limit:      limit,
		StartAfter: r.URL.Query().Get("startAfter"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to list resources", err)
		return
	}
	if recs == nil {
		recs = []models.ResourceRecord{}
	}

	respondJSON(w, http.StatusOK, listResourcesResponse{Items: recs, NextToken: next})
}

// GetResource handles GET /api/v1/resources/{resourceID}.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	rec, err := h.store.GetResource(r.Context(), userID, chi.URLParam(r, "resourceID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to read resource", err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// UpdateResource handles PATCH /api/v1/resources/{resourceID}. Only the
// provided fields change; MinutesSpent moves through progress appends only.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	var req updateResourceRequest
	if !decodeBody(w, r, &req) || !h.validateRequest(w, &req) {
		return
	}
	if req.Title == nil && req.Type == nil && req.Status == nil {
		respondError(w, http.StatusBadRequest, codeValidation, "no fields to update", nil)
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	rec, err := h.store.GetResource(r.Context(), userID, resourceID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to read resource", err)
		return
	}

	if req.Title != nil {
		rec.Title = *req.Title
	}
	if req.Type != nil {
		rec.Type = models.ResourceType(*req.Type)
	}
	if req.Status != nil {
		rec.Status = models.ResourceStatus(*req.Status)
	}
	rec.UpdatedAt = h.now().UTC()

	if err := h.store.PutResource(r.Context(), rec); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to save resource", err)
		return
	}
	if !h.publishChange(r.Context(), w, eventbus.DetailTypeResourceUpdated, userID, resourceID) {
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// DeleteResource handles DELETE /api/v1/resources/{resourceID}.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	err := h.store.DeleteResource(r.Context(), userID, resourceID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to delete resource", err)
		return
	}
	if !h.publishChange(r.Context(), w, eventbus.DetailTypeResourceDeleted, userID, resourceID) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"resourceId": resourceID, "deleted": "true"})
}

// AppendProgress handles POST /api/v1/resources/{resourceID}/progress.
func (h *Handler) AppendProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	var req appendProgressRequest
	if !decodeBody(w, r, &req) || !h.validateRequest(w, &req) {
		return
	}

	progressAt := h.now().UTC()
	if req.ProgressAt != nil {
		progressAt = req.ProgressAt.UTC()
	}

	resourceID := chi.URLParam(r, "resourceID")
	rec, err := h.store.AppendProgress(r.Context(), &models.ProgressEntry{
		UserID:       userID,
		ResourceID:   resourceID,
		DeltaMinutes: req.DeltaMinutes,
		Note:         req.Note,
		ProgressAt:   progressAt,
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to append progress", err)
		return
	}
	if !h.publishChange(r.Context(), w, eventbus.DetailTypeResourceUpdated, userID, resourceID) {
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// ListProgress handles GET /api/v1/resources/{resourceID}/progress.
func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing identity", nil)
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	if _, err := h.store.GetResource(r.Context(), userID, resourceID); errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to read resource", err)
		return
	}

	entries, err := h.store.ListProgress(r.Context(), userID, resourceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to list progress", err)
		return
	}
	if entries == nil {
		entries = []models.ProgressEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": entries})
}
