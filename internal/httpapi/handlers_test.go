// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/config"
	"github.com/BiopticBug/pulsewire/internal/events"
	"github.com/BiopticBug/pulsewire/internal/persistence"
	ws "github.com/BiopticBug/pulsewire/internal/websocket"
)

// fakeIngester stands in for *wsapi.Pipeline without importing wsapi, same
// avoid-the-import-cycle reason the Ingester interface itself exists for.
type fakeIngester struct {
	frame []byte
	err   error
}

func (f *fakeIngester) Ingest(receivedAt time.Time, batch []events.Event) ([]byte, error) {
	return f.frame, f.err
}

func newTestHandler(t *testing.T) (*Handler, *auth.Verifier) {
	t.Helper()
	store, err := persistence.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	verifier := auth.NewVerifier("test-secret")
	registry := ws.NewRegistry()
	h := NewHandler(store, verifier, &fakeIngester{frame: []byte(`{"type":"agg_delta"}`)}, registry)
	return h, verifier
}

func TestHealthAlwaysOK(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("expected ok:true, got %s", rec.Body.String())
	}
}

func TestReadyReflectsStoreState(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a healthy store, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("expected ok:true, got %s", rec.Body.String())
	}
}

func TestTokenIssuesSignedCredential(t *testing.T) {
	h, verifier := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Token(rec, httptest.NewRequest(http.MethodGet, "/token?userId=alice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode token response: %v", err)
	}
	identity := verifier.Verify(body["token"])
	if !identity.Valid() || identity.Subject != "alice" {
		t.Fatalf("expected a valid token for subject alice, got %+v", identity)
	}
}

func TestIngestEmptyPayloadRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "empty payload") {
		t.Fatalf("expected empty payload error, got %s", rec.Body.String())
	}
}

func TestIngestAllEventsInvalidRejected(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	body := `[{"eventId":"","ts":1,"userId":"u1","sessionId":"s1","route":"/a","action":"view"}]`
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no valid events") {
		t.Fatalf("expected no valid events error, got %s", rec.Body.String())
	}
}

func TestIngestAcceptsValidBatch(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	body := `[{"eventId":"e1","ts":1,"userId":"u1","sessionId":"s1","route":"/a","action":"view"}]`
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"accepted":1`) {
		t.Fatalf("expected accepted:1, got %s", rec.Body.String())
	}
}

func TestAuthenticateRejectsMissingCredential(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	mw := authenticate(verifier)
	called := false
	handler := mw(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatal("expected the downstream handler not to run")
	}
}

func TestAuthenticateAllowsValidCredential(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	token, err := verifier.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	mw := authenticate(verifier)
	called := false
	handler := mw(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Fatal("expected the downstream handler to run for a valid credential")
	}
}

func TestTokenBucketPerSourceRejectsBurstPastLimit(t *testing.T) {
	mw := tokenBucketPerSource(1)
	called := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)

	if rec1.Code != http.StatusOK {
		t.Fatalf("expected the first request to pass, got %d", rec1.Code)
	}
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the second request to be rate limited, got %d", rec2.Code)
	}
	if called != 1 {
		t.Fatalf("expected exactly one request to reach the handler, got %d", called)
	}
}
