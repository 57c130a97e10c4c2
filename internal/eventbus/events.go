// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Detail types for change events. The stats worker treats them all the
// same; they exist so other consumers can filter.
const (
	DetailTypeResourceCreated = "resource.created"
	DetailTypeResourceUpdated = "resource.updated"
	DetailTypeResourceDeleted = "resource.deleted"
)

// SourceResources identifies the resource API as the event producer.
const SourceResources = "learntrack.resources"

// ChangeDetail is the payload consumers act on. Only UserID is required
// by the stats worker; ResourceID and HappenedAt travel along for other
// consumers and for debugging.
type ChangeDetail struct {
	UserID     string    `json:"userId"`
	ResourceID string    `json:"resourceId"`
	HappenedAt time.Time `json:"happenedAt"`
}

// ChangeEvent is the notification envelope published on every resource
// mutation. The detail nests inside the envelope, so a message body looks
// like:
//
//	{"id":"...","detail-type":"resource.updated",
//	 "source":"learntrack.resources",
//	 "detail":{"userId":"u1","resourceId":"r1","happenedAt":"..."}}
type ChangeEvent struct {
	EventID    string       `json:"id"`
	DetailType string       `json:"detail-type"`
	Source     string       `json:"source"`
	Detail     ChangeDetail `json:"detail"`
}

// NewChangeEvent creates an event with a fresh ID for one resource mutation.
func NewChangeEvent(detailType, userID, resourceID string, happenedAt time.Time) *ChangeEvent {
	return &ChangeEvent{
		EventID:    uuid.New().String(),
		DetailType: detailType,
		Source:     SourceResources,
		Detail: ChangeDetail{
			UserID:     userID,
			ResourceID: resourceID,
			HappenedAt: happenedAt.UTC(),
		},
	}
}

// Validate checks required fields.
func (e *ChangeEvent) Validate() error {
	if e.EventID == "" {
		return &FieldError{Field: "id", Message: "required"}
	}
	if e.DetailType == "" {
		return &FieldError{Field: "detail-type", Message: "required"}
	}
	if e.Detail.UserID == "" {
		return &FieldError{Field: "detail.userId", Message: "required"}
	}
	return nil
}

// FieldError reports a missing or invalid event field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}
