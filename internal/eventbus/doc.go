// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package eventbus carries resource change notifications between the CRUD
// handlers and the weekly stats worker over NATS JetStream, via Watermill.
//
// Delivery is at-least-once: the stream redelivers any message that is not
// acked within the consumer's ack-wait. Consumers must tolerate duplicates;
// the stats worker does so by recomputing idempotently.
package eventbus
