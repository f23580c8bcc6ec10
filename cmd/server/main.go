// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package main is the entry point for the Pulsewire server.
//
// Pulsewire ingests analytics events over a WebSocket streaming endpoint and
// a request endpoint, fans live aggregates out to subscribed dashboards, and
// durably persists every batch through a WAL-backed NATS JetStream relay
// into DuckDB.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and an optional config file (koanf v2)
//  2. Persistence: DuckDB-backed raw-event and aggregate store
//  3. WAL: BadgerDB-backed write-ahead log guaranteeing at-least-once delivery
//  4. NATS JetStream: embedded by default, relays WAL entries to the store stage
//  5. Aggregator: in-memory sliding-window aggregates, swept by a bucket janitor
//  6. WebSocket registry: per-dashboard topic fan-out
//  7. Streaming and request HTTP servers
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: both HTTP servers stop
// accepting connections and drain in-flight requests, the WAL retry loop and
// compactor finish their current pass, and the embedded NATS server and
// DuckDB connection are closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/config"
	"github.com/BiopticBug/pulsewire/internal/durability"
	"github.com/BiopticBug/pulsewire/internal/httpapi"
	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/persistence"
	"github.com/BiopticBug/pulsewire/internal/supervisor"
	"github.com/BiopticBug/pulsewire/internal/supervisor/services"
	"github.com/BiopticBug/pulsewire/internal/wal"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
	"github.com/BiopticBug/pulsewire/internal/wsapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().Msg("starting pulsewire")

	store, err := persistence.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open persistence store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing persistence store")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("persistence store opened")

	walCfg := wal.LoadConfig()
	badgerWAL, err := wal.Open(&walCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open WAL")
	}
	defer func() {
		if err := badgerWAL.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing WAL")
		}
	}()
	logging.Info().Str("path", walCfg.Path).Msg("WAL opened")

	var embeddedNATS *durability.EmbeddedServer
	natsURL := cfg.NATS.URL
	if cfg.NATS.Embedded {
		embeddedNATS, err = durability.NewEmbeddedServer(cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to start embedded NATS server")
		}
		natsURL = embeddedNATS.ClientURL()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embeddedNATS.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("error shutting down embedded NATS server")
			}
		}()
		logging.Info().Str("url", natsURL).Msg("embedded NATS JetStream server started")
	}

	bootstrapConn, err := natsgo.Connect(natsURL)
	if err != nil {
		logging.Fatal().Err(err).Str("url", natsURL).Msg("failed to connect to NATS for stream bootstrap")
	}
	js, err := jetstream.New(bootstrapConn)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create JetStream context")
	}
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := durability.EnsureStream(bootstrapCtx, js); err != nil {
		bootstrapCancel()
		logging.Fatal().Err(err).Msg("failed to ensure JetStream stream")
	}
	bootstrapCancel()
	bootstrapConn.Close()
	logging.Info().Str("stream", durability.StreamName).Msg("JetStream stream ready")

	watermillLogger := watermill.NewStdLogger(false, false)

	walPublisher, err := durability.NewWALPublisher(durability.DefaultPublisherConfig(natsURL), badgerWAL, watermillLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create WAL-durable NATS publisher")
	}
	defer func() {
		if err := walPublisher.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing WAL publisher")
		}
	}()

	breaker := durability.NewCircuitBreaker(durability.DefaultCircuitBreakerConfig())
	consumer, err := durability.NewConsumer(durability.DefaultSubscriberConfig(natsURL), store, breaker, watermillLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create durability consumer")
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing durability consumer")
		}
	}()

	agg := aggregate.New()
	janitor := aggregate.NewJanitor(agg, aggregate.DefaultJanitorInterval).
		WithRawEventPurge(store, cfg.Ingestion.RawEventsTTL())

	registry := ws.NewRegistry()
	verifier := auth.NewVerifier(cfg.Security.JWTSecret)

	streamPipeline := wsapi.NewPipeline(agg, walPublisher, wsapi.DefaultSource)
	requestPipeline := wsapi.NewPipeline(agg, walPublisher, "http")

	wsHandler := wsapi.New(registry, streamPipeline, verifier, cfg.Ingestion.MaxMsgBytes, cfg.Server.AllowedOrigins)
	streamServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.StreamPort()),
		Handler:      wsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	httpRouter := httpapi.New(
		store,
		verifier,
		requestPipeline,
		registry,
		cfg.Server.AllowedOrigins,
		cfg.Security.RateLimitRPS,
		cfg.Ingestion.MaxMsgBytes,
	)
	requestServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpRouter.Build(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	retryLoop := wal.NewRetryLoop(badgerWAL, walPublisher.AsWALPublisher())
	compactor := wal.NewCompactor(badgerWAL)
	tree.AddDataService(services.NewWALRetryLoopService(retryLoop))
	tree.AddDataService(services.NewWALCompactorService(compactor))
	tree.AddDataService(services.NewWALMetricsService(badgerWAL, services.DefaultWALStatsInterval))

	tree.AddMessagingService(consumer)
	tree.AddMessagingService(janitor)

	tree.AddAPIService(services.NewHTTPServerService(streamServer, "stream-server", cfg.Server.ShutdownTimeout))
	tree.AddAPIService(services.NewHTTPServerService(requestServer, "request-server", cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().
		Int("request_port", cfg.Server.Port).
		Int("stream_port", cfg.Server.StreamPort()).
		Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	registry.Shutdown(context.Background())

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("pulsewire stopped gracefully")
}
