// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Command server runs the Learntrack API, the change-notification bus and
// the weekly stats worker in a single supervised process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/learntrack/learntrack/internal/api"
	"github.com/learntrack/learntrack/internal/config"
	"github.com/learntrack/learntrack/internal/eventbus"
	"github.com/learntrack/learntrack/internal/logging"
	"github.com/learntrack/learntrack/internal/statsworker"
	"github.com/learntrack/learntrack/internal/store"
	"github.com/learntrack/learntrack/internal/suggest"
	"github.com/learntrack/learntrack/internal/supervisor"
	"github.com/learntrack/learntrack/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("stream", cfg.NATS.StreamName).
		Bool("embedded_nats", cfg.NATS.Embedded).
		Msg("starting learntrack")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("store close failed")
		}
	}()

	// Bus: embedded server (optional), stream, publisher, subscriber
	natsURL := cfg.NATS.URL
	if cfg.NATS.Embedded {
		embedded, err := eventbus.NewEmbeddedServer(eventbus.ServerConfig{
			Host:              cfg.NATS.Host,
			Port:              cfg.NATS.Port,
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		})
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		natsURL = embedded.ClientURL()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("embedded NATS shutdown failed")
			}
		}()
	}

	if err := ensureStream(ctx, natsURL, cfg); err != nil {
		return err
	}

	wmLogger := logging.NewWatermillAdapter()

	pubCfg := eventbus.DefaultPublisherConfig(natsURL)
	pubCfg.MaxReconnects = cfg.NATS.MaxReconnects
	pubCfg.ReconnectWait = cfg.NATS.ReconnectWait
	publisher, err := eventbus.NewPublisher(pubCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("publisher close failed")
		}
	}()
	publisher.SetCircuitBreaker(gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "event-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}))

	subCfg := eventbus.DefaultSubscriberConfig(natsURL, cfg.NATS.StreamName)
	subCfg.DurableName = cfg.NATS.DurableName
	subCfg.QueueGroup = cfg.NATS.QueueGroup
	subCfg.AckWaitTimeout = cfg.NATS.AckWait
	subCfg.MaxDeliver = cfg.NATS.MaxDeliver
	subCfg.MaxReconnects = cfg.NATS.MaxReconnects
	subCfg.ReconnectWait = cfg.NATS.ReconnectWait
	subscriber, err := eventbus.NewSubscriber(subCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("subscriber close failed")
		}
	}()

	// Stats worker
	workerLog := logging.With().Str("component", "statsworker").Logger()
	aggregator := statsworker.NewAggregator(st, statsworker.AggregatorConfig{}, workerLog)
	consumer := statsworker.NewConsumer(subscriber, aggregator, statsworker.ConsumerConfig{
		Topic:       cfg.NATS.Subject,
		BatchSize:   cfg.Worker.BatchSize,
		BatchWindow: cfg.Worker.BatchWindow,
	}, workerLog)

	// HTTP API
	coach := suggest.NewClient(cfg.Suggest, logging.With().Str("component", "suggest").Logger())
	handler := api.NewHandler(api.HandlerConfig{
		Store:     st,
		Publisher: publisher,
		Coach:     coach,
		Topic:     cfg.NATS.Subject,
	})
	router := api.NewRouter(handler, cfg.Server)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervision
	slogLogger := slog.New(logging.NewSlogHandler())
	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewWorkerService(consumer, "stats-worker"))
	if !cfg.Store.InMemory {
		tree.AddPipelineService(services.NewStoreGCService(st, 10*time.Minute))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	logging.Info().Msg("supervisor tree starting")
	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info().Msg("shutdown complete")
		return nil
	}
	return err
}

// ensureStream connects briefly to provision the notification stream, so
// publisher and subscriber can bind to it without auto-provisioning.
func ensureStream(ctx context.Context, natsURL string, cfg *config.Config) error {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", natsURL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := eventbus.DefaultStreamConfig(cfg.NATS.StreamName, cfg.NATS.Subject)
	streamCfg.MaxAge = cfg.NATS.RetentionAge

	initializer, err := eventbus.NewStreamInitializer(js, streamCfg)
	if err != nil {
		return fmt.Errorf("create stream initializer: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := initializer.EnsureStream(initCtx); err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.NATS.StreamName, err)
	}

	logging.Info().
		Str("stream", cfg.NATS.StreamName).
		Str("subject", cfg.NATS.Subject).
		Msg("notification stream ready")
	return nil
}
