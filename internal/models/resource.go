// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package models

import "time"

// ResourceType classifies a learning resource.
type ResourceType string

// Resource types.
const (
	ResourceTypeCourse  ResourceType = "course"
	ResourceTypeBook    ResourceType = "book"
	ResourceTypeVideo   ResourceType = "video"
	ResourceTypeArticle ResourceType = "article"
)

// Valid reports whether the type is one of the known resource types.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeCourse, ResourceTypeBook, ResourceTypeVideo, ResourceTypeArticle:
		return true
	}
	return false
}

// ResourceStatus tracks whether a resource is still being worked on.
type ResourceStatus string

// Resource statuses.
const (
	ResourceStatusActive    ResourceStatus = "active"
	ResourceStatusCompleted ResourceStatus = "completed"
)

// Valid reports whether the status is one of the known statuses.
func (s ResourceStatus) Valid() bool {
	return s == ResourceStatusActive || s == ResourceStatusCompleted
}

// ResourceRecord is a learning resource owned by a single user.
// Identity is (UserID, ResourceID). MinutesSpent only ever grows, via
// progress appends.
type ResourceRecord struct {
	UserID       string         `json:"userId"`
	ResourceID   string         `json:"resourceId"`
	Title        string         `json:"title"`
	Type         ResourceType   `json:"type"`
	Status       ResourceStatus `json:"status"`
	MinutesSpent int            `json:"minutesSpent"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Validate checks required fields and enum values.
func (r *ResourceRecord) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "userId", Message: "required"}
	}
	if r.ResourceID == "" {
		return &ValidationError{Field: "resourceId", Message: "required"}
	}
	if r.Title == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "type", Message: "must be course, book, video or article"}
	}
	if !r.Status.Valid() {
		return &ValidationError{Field: "status", Message: "must be active or completed"}
	}
	if r.MinutesSpent < 0 {
		return &ValidationError{Field: "minutesSpent", Message: "must be non-negative"}
	}
	return nil
}

// ProgressEntry records one study session against a resource.
// Identity is (UserID, ResourceID, ProgressAt). Entries are append-only and
// are removed only when the parent resource is deleted.
type ProgressEntry struct {
	UserID       string    `json:"userId"`
	ResourceID   string    `json:"resourceId"`
	DeltaMinutes int       `json:"deltaMinutes"`
	Note         string    `json:"note,omitempty"`
	ProgressAt   time.Time `json:"progressAt"`
}

// Validate checks required fields.
func (p *ProgressEntry) Validate() error {
	if p.UserID == "" {
		return &ValidationError{Field: "userId", Message: "required"}
	}
	if p.ResourceID == "" {
		return &ValidationError{Field: "resourceId", Message: "required"}
	}
	if p.DeltaMinutes <= 0 {
		return &ValidationError{Field: "deltaMinutes", Message: "must be positive"}
	}
	if p.ProgressAt.IsZero() {
		return &ValidationError{Field: "progressAt", Message: "required"}
	}
	return nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
