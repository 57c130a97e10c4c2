// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package statsworker

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/learntrack/learntrack/internal/metrics"
)

// MessageSource is the subscriber surface the consumer needs. Satisfied by
// *eventbus.Subscriber and, in tests, by a plain channel wrapper.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// ConsumerConfig holds batching settings.
type ConsumerConfig struct {
	// Topic is the subject change notifications arrive on.
	Topic string

	// BatchSize is the most messages handed to the aggregator at once.
	// Default 5.
	BatchSize int

	// BatchWindow is the longest a partial batch waits before being
	// processed. Default 5s.
	BatchWindow time.Duration
}

// Consumer drains the notification stream into bounded batches and feeds
// them to the aggregator. A batch is dispatched when it reaches BatchSize
// or when BatchWindow elapses since its first message, whichever is first.
//
// Ack discipline, per at-least-once semantics:
//   - malformed messages are acked (skipped, never retried)
//   - messages for users that recomputed cleanly are acked
//   - messages for users whose recomputation failed are nacked, so the
//     stream redelivers them after the ack-wait
type Consumer struct {
	source MessageSource
	agg    *Aggregator
	config ConsumerConfig
	logger zerolog.Logger
}

// NewConsumer creates a consumer wiring the source to the aggregator.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewConsumer(source MessageSource, agg *Aggregator, cfg ConsumerConfig, logger zerolog.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = 5 * time.Second
	}
	return &Consumer{
		source: source,
		agg:    agg,
		config: cfg,
		logger: logger,
	}
}

// Run consumes until the context is canceled or the source channel closes.
// Pending undispatched messages are nacked on shutdown so they redeliver.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.source.Subscribe(ctx, c.config.Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.config.Topic, err)
	}

	pending := make([]*message.Message, 0, c.config.BatchSize)

	timer := time.NewTimer(c.config.BatchWindow)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.nackAll(pending)
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				c.dispatch(ctx, pending)
				return nil
			}
			if len(pending) == 0 {
				timer.Reset(c.config.BatchWindow)
			}
			pending = append(pending, msg)
			if len(pending) >= c.config.BatchSize {
				stopTimer(timer)
				c.dispatch(ctx, pending)
				pending = pending[:0]
			}

		case <-timer.C:
			if len(pending) > 0 {
				c.dispatch(ctx, pending)
				pending = pending[:0]
			}
		}
	}
}

// dispatch decodes one batch, runs the aggregator, and settles every
// message according to its user's outcome.
func (c *Consumer) dispatch(ctx context.Context, msgs []*message.Message) {
	if len(msgs) == 0 {
		return
	}

	metrics.RecordBatch(len(msgs))
	c.logger.Debug().Int("size", len(msgs)).Msg("processing notification batch")

	batch := DecodeBatch(msgs, c.logger)

	// Skipped messages must not be redelivered.
	for _, msg := range batch.Malformed {
		msg.Ack()
	}

	result := c.agg.ProcessBatch(ctx, batch)

	for _, userID := range batch.Users {
		if _, failed := result.Failed[userID]; failed {
			for _, msg := range batch.Messages[userID] {
				msg.Nack()
			}
			continue
		}
		for _, msg := range batch.Messages[userID] {
			msg.Ack()
		}
	}
}

func (c *Consumer) nackAll(msgs []*message.Message) {
	for _, msg := range msgs {
		msg.Nack()
	}
}

// stopTimer drains the timer so the next Reset starts clean.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
