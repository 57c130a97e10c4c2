// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package statsworker

import (
	"fmt"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

func notification(userID string) *message.Message {
	payload := fmt.Sprintf(`{"id":"evt","detail-type":"resource.updated","source":"learntrack.resources","detail":{"userId":%q,"resourceId":"r1"}}`, userID)
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}

func TestDecodeBatch(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("deduplicates users, keeps message provenance", func(t *testing.T) {
		msgs := []*message.Message{
			notification("alice"),
			notification("alice"),
			notification("bob"),
			notification("alice"),
		}

		batch := DecodeBatch(msgs, logger)

		if len(batch.Users) != 2 {
			t.Fatalf("expected 2 distinct users, got %d: %v", len(batch.Users), batch.Users)
		}
		if batch.Users[0] != "alice" || batch.Users[1] != "bob" {
			t.Errorf("expected first-seen order [alice bob], got %v", batch.Users)
		}
		if got := len(batch.Messages["alice"]); got != 3 {
			t.Errorf("expected 3 messages tracked for alice, got %d", got)
		}
		if got := len(batch.Messages["bob"]); got != 1 {
			t.Errorf("expected 1 message tracked for bob, got %d", got)
		}
		if batch.Size() != 4 {
			t.Errorf("expected batch size 4, got %d", batch.Size())
		}
	})

	t.Run("malformed messages are skipped, not fatal", func(t *testing.T) {
		msgs := []*message.Message{
			message.NewMessage(watermill.NewUUID(), []byte("not json")),
			message.NewMessage(watermill.NewUUID(), []byte(`{"detail":{}}`)),
			notification("carol"),
		}

		batch := DecodeBatch(msgs, logger)

		if len(batch.Malformed) != 2 {
			t.Fatalf("expected 2 malformed messages, got %d", len(batch.Malformed))
		}
		if len(batch.Users) != 1 || batch.Users[0] != "carol" {
			t.Errorf("expected [carol], got %v", batch.Users)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		batch := DecodeBatch(nil, logger)
		if len(batch.Users) != 0 || len(batch.Malformed) != 0 || batch.Size() != 0 {
			t.Errorf("expected empty batch, got %+v", batch)
		}
	})
}
