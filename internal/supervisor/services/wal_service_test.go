// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockStartStopper struct {
	startErr  error
	started   atomic.Bool
	stopped   atomic.Bool
	isRunning atomic.Bool
}

func (m *mockStartStopper) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started.Store(true)
	m.isRunning.Store(true)
	return nil
}

func (m *mockStartStopper) Stop() {
	m.stopped.Store(true)
	m.isRunning.Store(false)
}

func (m *mockStartStopper) IsRunning() bool { return m.isRunning.Load() }

func TestWALRetryLoopServiceStopsOnCancel(t *testing.T) {
	mock := &mockStartStopper{}
	svc := NewWALRetryLoopService(mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	if !mock.started.Load() {
		t.Fatal("retry loop was never started")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !mock.stopped.Load() {
		t.Fatal("Stop was never called")
	}
}

func TestWALRetryLoopServiceReturnsStartError(t *testing.T) {
	mock := &mockStartStopper{startErr: errors.New("open failed")}
	svc := NewWALRetryLoopService(mock)
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestWALCompactorServiceStopsOnCancel(t *testing.T) {
	mock := &mockStartStopper{}
	svc := NewWALCompactorService(mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !mock.stopped.Load() {
		t.Fatal("Stop was never called")
	}
}

func TestWALServiceStringsAreDistinct(t *testing.T) {
	retry := NewWALRetryLoopService(&mockStartStopper{})
	compactor := NewWALCompactorService(&mockStartStopper{})
	if retry.String() == compactor.String() {
		t.Fatal("retry loop and compactor services must log under distinct names")
	}
}
