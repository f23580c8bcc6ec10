// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package httpapi implements the request endpoint: health/readiness probes,
// the dev-convenience token issuer, and the authenticated batch ingestion
// route.
package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/events"
	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/metrics"
	"github.com/BiopticBug/pulsewire/internal/persistence"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
)

// defaultTokenSubject is used by GET /token when no userId is supplied.
const defaultTokenSubject = "dev"

// tokenTTL is the fixed expiry for credentials issued by GET /token.
const tokenTTL = 12 * time.Hour

// Ingester applies a validated batch to the aggregator and returns the
// resulting delta frame for the caller to broadcast, mirroring what the
// streaming endpoint's pipeline does for inbound events frames. Implemented by *wsapi.Pipeline in cmd/server's
// wiring; declared here to avoid httpapi depending on wsapi.
type Ingester interface {
	Ingest(receivedAt time.Time, batch []events.Event) (deltaFrame []byte, err error)
}

// Handler holds the request endpoint's dependencies.
type Handler struct {
	store    *persistence.Store
	verifier *auth.Verifier
	ingester Ingester
	registry *ws.Registry
}

// NewHandler constructs the request endpoint's Handler.
func NewHandler(store *persistence.Store, verifier *auth.Verifier, ingester Ingester, registry *ws.Registry) *Handler {
	return &Handler{store: store, verifier: verifier, ingester: ingester, registry: registry}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response body")
	}
}

// Health answers GET /health unconditionally.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Ready answers GET /ready against the persistence backend's liveness probe.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logging.Debug().Err(err).Msg("readiness probe failed")
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Token answers GET /token?userId=<s>, a dev-convenience credential issuer
// never meant to be reachable in production.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("userId")
	if subject == "" {
		subject = defaultTokenSubject
	}

	token, err := h.verifier.Issue(subject, tokenTTL)
	if err != nil {
		logging.Error().Err(err).Msg("failed to issue token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Ingest answers POST /ingest (authenticated by the authenticate middleware
// upstream): validates the batch, applies it to the aggregator, and
// broadcasts the resulting delta.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		logging.Debug().Err(err).Msg("failed to read ingest body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty payload"})
		return
	}
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty payload"})
		return
	}

	wireBatch, err := events.ParseBatch(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty payload"})
		return
	}

	validated := events.Validate(wireBatch)
	if dropped := len(wireBatch) - len(validated); dropped > 0 {
		metrics.EventsDroppedTotal.Add(float64(dropped))
	}
	if len(validated) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no valid events"})
		return
	}

	deltaFrame, err := h.ingester.Ingest(time.Now(), validated)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to ingest batch")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ingestion failed"})
		return
	}
	if deltaFrame != nil {
		h.registry.Broadcast(ws.GlobalDashboardTopic, deltaFrame)
	}

	writeJSON(w, http.StatusOK, map[string]int{"accepted": len(validated)})
}
