// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type mockHTTPServer struct {
	shutdownCalled atomic.Bool
	stopCh         chan struct{}
	startErr       error
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.startErr != nil {
		return m.startErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdownCalled.Store(true)
	close(m.stopCh)
	return nil
}

func TestHTTPServerServiceStopsOnCancel(t *testing.T) {
	mock := newMockHTTPServer()
	svc := NewHTTPServerService(mock, "test-server", 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !mock.shutdownCalled.Load() {
		t.Fatal("Shutdown was never called")
	}
}

func TestHTTPServerServiceReturnsStartError(t *testing.T) {
	mock := newMockHTTPServer()
	mock.startErr = errors.New("bind failed")
	svc := NewHTTPServerService(mock, "test-server", 50*time.Millisecond)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestHTTPServerServiceString(t *testing.T) {
	svc := NewHTTPServerService(newMockHTTPServer(), "streaming-server", 0)
	if svc.String() != "streaming-server" {
		t.Fatalf("unexpected name: %s", svc.String())
	}
}
