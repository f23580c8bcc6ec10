// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package wsapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/logging"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
)

// Handler upgrades authenticated streaming requests to WebSocket connections
// and binds each one to the shared topic registry and ingestion pipeline.
type Handler struct {
	registry       *ws.Registry
	pipeline       *Pipeline
	verifier       *auth.Verifier
	maxMsgBytes    int64
	allowedOrigins map[string]struct{}
}

// New creates a streaming Handler. allowedOrigins is the CORS allow-list
// shared with the request endpoint; an empty list permits any origin, for
// parity with how the request endpoint's own CORS middleware treats an
// unconfigured ALLOWED_ORIGINS.
func New(registry *ws.Registry, pipeline *Pipeline, verifier *auth.Verifier, maxMsgBytes int64, allowedOrigins []string) *Handler {
	set := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		set[o] = struct{}{}
	}
	return &Handler{
		registry:       registry,
		pipeline:       pipeline,
		verifier:       verifier,
		maxMsgBytes:    maxMsgBytes,
		allowedOrigins: set,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
}

// ServeHTTP implements the streaming endpoint. A request whose bearer
// credential resolves to a null identity is upgraded (the handshake itself
// carries no auth signal gorilla exposes before upgrade) and immediately
// closed with a policy-violation code, per the auth-gating contract: no
// subscription is ever possible for an unauthenticated caller.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := h.verifier.Verify(auth.CredentialFromURL(r.Header, r.URL.RawQuery))

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, h.registry, h.pipeline, h.pipeline, h.maxMsgBytes, identity.Subject)

	if !identity.Valid() {
		client.ClosePolicyViolation()
		return
	}

	client.Start()
}
