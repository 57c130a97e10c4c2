// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package services

import (
	"context"
	"time"
)

// Runner is a blocking, context-aware run loop. Satisfied by
// *statsworker.Consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// WorkerService supervises the stats worker consumer. A non-cancellation
// error from Run is returned so suture restarts the consumer; the
// subscriber re-establishes its durable consumer on the next start, and
// unacked messages redeliver.
type WorkerService struct {
	runner Runner
	name   string
}

// NewWorkerService wraps a run loop as a supervised service.
func NewWorkerService(runner Runner, name string) *WorkerService {
	if name == "" {
		name = "stats-worker"
	}
	return &WorkerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (w *WorkerService) Serve(ctx context.Context) error {
	return w.runner.Run(ctx)
}

// String identifies the service in suture logs.
func (w *WorkerService) String() string {
	return w.name
}

// GCRunner matches the store's value-log GC entry point.
type GCRunner interface {
	RunGC() error
}

// StoreGCService periodically runs Badger value-log garbage collection.
type StoreGCService struct {
	store    GCRunner
	interval time.Duration
}

// NewStoreGCService wraps the store's GC loop as a supervised service.
func NewStoreGCService(store GCRunner, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{store: store, interval: interval}
}

// Serve implements suture.Service. GC errors are swallowed; the steady
// state answer from Badger is "nothing to rewrite".
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = s.store.RunGC()
		}
	}
}

// String identifies the service in suture logs.
func (s *StoreGCService) String() string {
	return "store-gc"
}
