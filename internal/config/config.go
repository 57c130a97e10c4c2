// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package config defines Learntrack's typed configuration and its koanf
// load chain: struct defaults, then an optional YAML file, then
// LEARNTRACK_-prefixed environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server binary. All clients
// (store, bus, model endpoint) are constructed from this struct at bootstrap
// and injected; nothing reads ambient environment at runtime.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	NATS    NATSConfig    `koanf:"nats"`
	Worker  WorkerConfig  `koanf:"worker"`
	Server  ServerConfig  `koanf:"server"`
	Suggest SuggestConfig `koanf:"suggest"`
	Logging LoggingConfig `koanf:"logging"`
}

// StoreConfig configures the Badger-backed resource store.
type StoreConfig struct {
	// Dir is the on-disk location of the store.
	Dir string `koanf:"dir"`

	// InMemory runs the store without persistence. Test/dev only.
	InMemory bool `koanf:"in_memory"`
}

// NATSConfig configures the change-notification bus.
type NATSConfig struct {
	// URL is the NATS server connection URL. Ignored when Embedded is true.
	URL string `koanf:"url"`

	// Embedded starts an in-process NATS JetStream server.
	Embedded bool `koanf:"embedded"`

	// Host/Port bind address for the embedded server.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// StoreDir is the embedded server's JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory / MaxStore are embedded JetStream limits in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamName is the JetStream stream buffering change notifications.
	StreamName string `koanf:"stream_name"`

	// Subject is the subject change notifications are published to.
	Subject string `koanf:"subject"`

	// DurableName / QueueGroup identify the aggregator's durable consumer.
	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`

	// AckWait is the visibility timeout before an unacked message is
	// redelivered.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxDeliver caps redelivery attempts per message.
	MaxDeliver int `koanf:"max_deliver"`

	// RetentionAge bounds how long the stream retains notifications.
	RetentionAge time.Duration `koanf:"retention_age"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// WorkerConfig configures the weekly stats aggregator's batching.
type WorkerConfig struct {
	// BatchSize is the maximum notifications handed to the aggregator at
	// once. Default 5, matching the queue's batch-size contract.
	BatchSize int `koanf:"batch_size"`

	// BatchWindow is the longest a partial batch waits before delivery.
	// Default 5s.
	BatchWindow time.Duration `koanf:"batch_window"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// SuggestConfig configures the hosted-model suggestion client. With an empty
// Endpoint the handler answers with a canned hint instead of calling out.
type SuggestConfig struct {
	Endpoint          string        `koanf:"endpoint"`
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all default values applied. These are the
// base layer of the load chain; file and env values override them.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Dir:      "/data/learntrack/store",
			InMemory: false,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Embedded:      true,
			Host:          "127.0.0.1",
			Port:          4222,
			StoreDir:      "/data/learntrack/jetstream",
			MaxMemory:     1 << 30,  // 1GB
			MaxStore:      10 << 30, // 10GB
			StreamName:    "RESOURCES",
			Subject:       "resources.changed",
			DurableName:   "stats-worker",
			QueueGroup:    "stats-workers",
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			RetentionAge:  7 * 24 * time.Hour,
			MaxReconnects: 60,
			ReconnectWait: 2 * time.Second,
		},
		Worker: WorkerConfig{
			BatchSize:   5,
			BatchWindow: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Suggest: SuggestConfig{
			Endpoint:          "",
			APIKey:            "",
			Model:             "",
			Timeout:           20 * time.Second,
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks configuration consistency before the process starts.
func (c *Config) Validate() error {
	if !c.Store.InMemory && c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required unless store.in_memory is set")
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.embedded is false")
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("nats.stream_name is required")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("worker.batch_size must be at least 1, got %d", c.Worker.BatchSize)
	}
	if c.Worker.BatchWindow <= 0 {
		return fmt.Errorf("worker.batch_window must be positive, got %s", c.Worker.BatchWindow)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Suggest.Endpoint != "" && c.Suggest.RequestsPerMinute < 1 {
		return fmt.Errorf("suggest.requests_per_minute must be at least 1 when an endpoint is configured")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
