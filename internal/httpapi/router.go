// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/middleware"
	"github.com/BiopticBug/pulsewire/internal/persistence"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
)

// Router holds the dependencies needed to assemble the request endpoint's
// chi.Router.
type Router struct {
	handler            *Handler
	verifier           *auth.Verifier
	allowedOrigins     []string
	ingestRateLimitRPS int
	maxBodyBytes       int64
}

// New constructs a Router for the request endpoint.
func New(store *persistence.Store, verifier *auth.Verifier, ingester Ingester, registry *ws.Registry, allowedOrigins []string, ingestRateLimitRPS int, maxBodyBytes int64) *Router {
	return &Router{
		handler:            NewHandler(store, verifier, ingester, registry),
		verifier:           verifier,
		allowedOrigins:     allowedOrigins,
		ingestRateLimitRPS: ingestRateLimitRPS,
		maxBodyBytes:       maxBodyBytes,
	}
}

// Build assembles the chi.Router: global middleware first, then one
// per-route-group middleware stack per endpoint's hardening needs.
func (router *Router) Build() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(router.allowedOrigins))
	r.Use(chiMiddleware(middleware.Compression))

	r.Route("/health", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Get("/", router.handler.Health)
	})

	r.Route("/ready", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Get("/", router.handler.Ready)
	})

	r.Route("/token", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Get("/", router.handler.Token)
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Use(ingestRateLimit(router.ingestRateLimitRPS))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(authenticate(router.verifier)))
		r.With(bodyLimit(router.maxBodyBytes)).Post("/", router.handler.Ingest)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// bodyLimit caps the request body read by POST /ingest.
func bodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
