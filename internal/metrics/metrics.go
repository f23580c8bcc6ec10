// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline, the broadcast path, and the HTTP request endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewire_api_requests_total",
			Help: "Total number of HTTP requests served by the request endpoint.",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration tracks HTTP request latency by method and route.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsewire_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// APIActiveRequests gauges HTTP requests currently in flight.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsewire_api_active_requests",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	// EventsIngestedTotal counts validated events applied to the aggregator,
	// labeled by the transport they arrived on.
	EventsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsewire_events_ingested_total",
			Help: "Total number of events accepted into the aggregator.",
		},
		[]string{"transport"},
	)

	// EventsDroppedTotal counts records the validator filtered out.
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsewire_events_dropped_total",
			Help: "Total number of wire records dropped by validation.",
		},
	)

	// BroadcastSkippedTotal counts subscribers skipped for a delta due to
	// backpressure or a closed connection.
	BroadcastSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsewire_broadcast_skipped_total",
			Help: "Total number of subscriber skips during broadcast (backpressure or closed).",
		},
	)

	// BucketsEvictedTotal counts out-of-horizon buckets removed by the janitor.
	BucketsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsewire_buckets_evicted_total",
			Help: "Total number of in-memory buckets evicted by the janitor.",
		},
	)

	// WALPendingEntries gauges unconfirmed WAL entries awaiting relay.
	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsewire_wal_pending_entries",
			Help: "Number of WAL entries not yet confirmed relayed to NATS.",
		},
	)

	// PersistenceBreakerOpenTotal counts times the DuckDB circuit breaker tripped.
	PersistenceBreakerOpenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsewire_persistence_breaker_open_total",
			Help: "Total number of times the persistence circuit breaker opened.",
		},
	)
)

// RecordAPIRequest records a completed HTTP request's method, route, status
// and duration.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments (inc=true) or decrements (inc=false) the
// in-flight HTTP request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
