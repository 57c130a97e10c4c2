// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package metrics provides Prometheus instrumentation for the stats
// pipeline and the HTTP API. Metrics are exposed at /metrics in Prometheus
// text format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learntrack_notifications_total",
			Help: "Change notifications received by the stats worker",
		},
		[]string{"result"}, // processed, malformed, failed
	)

	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learntrack_batches_total",
			Help: "Notification batches handed to the aggregator",
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learntrack_batch_size",
			Help:    "Messages per delivered batch",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
		},
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "learntrack_recompute_duration_seconds",
			Help:    "Per-user weekly stats recomputation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecomputeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learntrack_recompute_errors_total",
			Help: "Per-user recomputations that failed",
		},
	)

	// Store metrics

	StoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learntrack_store_ops_total",
			Help: "Store operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	// Bus metrics

	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learntrack_publishes_total",
			Help: "Change notifications published to the bus",
		},
		[]string{"status"},
	)

	// HTTP metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learntrack_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learntrack_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordNotification counts one received notification with its outcome.
func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

// RecordBatch counts one delivered batch and its size.
func RecordBatch(size int) {
	BatchesTotal.Inc()
	BatchSize.Observe(float64(size))
}

// ObserveRecompute records a per-user recomputation's duration and outcome.
func ObserveRecompute(d time.Duration, err error) {
	RecomputeDuration.Observe(d.Seconds())
	if err != nil {
		RecomputeErrors.Inc()
	}
}

// RecordStoreOp counts a store operation outcome.
func RecordStoreOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOps.WithLabelValues(op, status).Inc()
}

// RecordPublish counts a publish outcome.
func RecordPublish(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	PublishesTotal.WithLabelValues(status).Inc()
}

// RecordHTTP counts one served HTTP request.
func RecordHTTP(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
