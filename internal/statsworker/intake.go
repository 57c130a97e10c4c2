// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package statsworker

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/learntrack/learntrack/internal/metrics"
)

// envelope is the subset of the notification body the worker cares about.
// Everything else in the event is ignored.
type envelope struct {
	Detail struct {
		UserID string `json:"userId"`
	} `json:"detail"`
}

// Batch is one decoded notification batch: the distinct affected users in
// first-seen order, each user's source messages (for selective ack/nack),
// and the messages that could not be decoded.
type Batch struct {
	Users     []string
	Messages  map[string][]*message.Message
	Malformed []*message.Message
}

// Size returns the number of messages the batch was decoded from.
func (b *Batch) Size() int {
	n := len(b.Malformed)
	for _, msgs := range b.Messages {
		n += len(msgs)
	}
	return n
}

// DecodeBatch extracts and deduplicates affected user ids from a batch of
// bus messages. N notifications for the same user yield one entry in Users.
// Messages with unparseable bodies or a missing detail.userId are logged,
// counted, and collected as Malformed; they never fail the batch.
func DecodeBatch(msgs []*message.Message, logger zerolog.Logger) *Batch {
	batch := &Batch{
		Messages: make(map[string][]*message.Message, len(msgs)),
	}

	for _, msg := range msgs {
		var env envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			logger.Warn().
				Err(err).
				Str("message_uuid", msg.UUID).
				Msg("skipping unparseable notification")
			metrics.RecordNotification("malformed")
			batch.Malformed = append(batch.Malformed, msg)
			continue
		}
		if env.Detail.UserID == "" {
			logger.Warn().
				Str("message_uuid", msg.UUID).
				Msg("skipping notification without detail.userId")
			metrics.RecordNotification("malformed")
			batch.Malformed = append(batch.Malformed, msg)
			continue
		}

		userID := env.Detail.UserID
		if _, seen := batch.Messages[userID]; !seen {
			batch.Users = append(batch.Users, userID)
		}
		batch.Messages[userID] = append(batch.Messages[userID], msg)
	}

	return batch
}
