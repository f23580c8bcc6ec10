// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

/*
Package supervisor provides process supervision for Pulsewire using suture v4.

It implements a hierarchical supervisor tree that manages the lifecycle of
every long-running service in the server, with Erlang/OTP-style automatic
restart, failure isolation, and graceful shutdown.

# Overview

The tree organizes services into three layers for failure isolation:

	RootSupervisor ("pulsewire")
	├── DataSupervisor ("data-layer")
	│   ├── WALRetryLoopService
	│   ├── WALCompactorService
	│   └── WALMetricsService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── NATS consumer (feeds the DuckDB store)
	│   └── aggregate bucket janitor
	└── APISupervisor ("api-layer")
	    ├── request server (HTTP: /ingest, /token, /health, /ready)
	    └── stream server (WebSocket)

A crash in the messaging layer (the NATS consumer losing its connection)
doesn't take down the API layer's ability to keep serving ingestion
requests, and a WAL compaction failure doesn't affect either.

# Usage

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddDataService(services.NewWALRetryLoopService(retryLoop))
	tree.AddMessagingService(consumer)
	tree.AddAPIService(services.NewHTTPServerService(server, "request-server", shutdownTimeout))

	errCh := tree.ServeBackground(ctx)
	...
	if err := <-errCh; err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Failure handling

Each supervisor tracks a failure counter that decays exponentially over
FailureDecay seconds. A single crash restarts its service immediately;
FailureThreshold failures within the decay window trigger FailureBackoff
before the next restart attempt, preventing a crash-looping service from
spinning the CPU.

# Service interface

Every supervised service implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil means the service stopped cleanly and will not be restarted;
returning an error means it crashed and will be restarted; the service
should return promptly once its context is canceled.

# Debugging shutdown hangs

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

# See Also

  - internal/supervisor/services: service wrappers for the WAL loops and HTTP servers
  - github.com/thejerf/suture/v4: underlying supervision library
*/
package supervisor
