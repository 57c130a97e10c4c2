// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package eventbus

import "time"

// PublisherConfig holds settings for the change notification publisher.
type PublisherConfig struct {
	// URL is the NATS server connection URL.
	URL string

	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int

	// EnableTrackMsgID turns on JetStream duplicate suppression keyed by
	// Nats-Msg-Id.
	EnableTrackMsgID bool
}

// DefaultPublisherConfig returns production defaults.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    60,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds settings for the durable worker subscriber.
type SubscriberConfig struct {
	// URL is the NATS server connection URL.
	URL string

	// StreamName binds the subscriber to a pre-created stream.
	StreamName string

	// DurableName makes the consumer resume where it left off across
	// restarts.
	DurableName string

	// QueueGroup load-balances messages across worker instances.
	QueueGroup string

	// AckWaitTimeout is the visibility timeout: unacked messages are
	// redelivered after it elapses.
	AckWaitTimeout time.Duration

	// MaxDeliver caps redeliveries per message.
	MaxDeliver int

	// MaxAckPending bounds in-flight unacked messages.
	MaxAckPending int

	SubscribersCount int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns production defaults.
func DefaultSubscriberConfig(url, streamName string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       streamName,
		DurableName:      "stats-worker",
		QueueGroup:       "stats-workers",
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		SubscribersCount: 1,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    60,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig holds JetStream stream settings for the notification buffer.
type StreamConfig struct {
	// Name is the stream name.
	Name string

	// Subjects are the subjects captured by the stream.
	Subjects []string

	// MaxAge bounds notification retention.
	MaxAge time.Duration

	// MaxBytes / MaxMsgs bound stream size (-1 = unlimited).
	MaxBytes int64
	MaxMsgs  int64

	// DuplicateWindow is the Nats-Msg-Id dedup horizon.
	DuplicateWindow time.Duration

	// Replicas is the stream replication factor.
	Replicas int
}

// DefaultStreamConfig returns production defaults for the given stream.
func DefaultStreamConfig(name, subject string) StreamConfig {
	return StreamConfig{
		Name:            name,
		Subjects:        []string{subject},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        -1,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}
