// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package wsapi

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
	"github.com/BiopticBug/pulsewire/internal/auth"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
)

func newTestServer(t *testing.T, verifier *auth.Verifier) *httptest.Server {
	t.Helper()
	registry := ws.NewRegistry()
	pipeline := NewPipeline(aggregate.New(), nil, DefaultSource)
	h := New(registry, pipeline, verifier, 32*1024, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string, token string) string {
	u, _ := url.Parse(httpURL)
	u.Scheme = "ws"
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String()
}

func TestUnauthenticatedConnectionIsClosedWithPolicyViolation(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	srv := newTestServer(t, verifier)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, ""), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected connection to be closed by the server")
	}
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected a close error, got %T: %v", err, err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected ClosePolicyViolation, got %d", closeErr.Code)
	}
}

func TestAuthenticatedConnectionReceivesSnapshotOnSubscribe(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	token, err := verifier.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	srv := newTestServer(t, verifier)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, token), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","topic":"dashboard:global"}`)); err != nil {
		t.Fatalf("failed to write subscribe frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a snapshot frame, got error: %v", err)
	}
	if !strings.Contains(string(data), `"agg_snapshot"`) {
		t.Fatalf("expected agg_snapshot frame, got %s", data)
	}
}
