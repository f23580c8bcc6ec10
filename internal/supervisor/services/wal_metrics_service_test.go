// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BiopticBug/pulsewire/internal/metrics"
	"github.com/BiopticBug/pulsewire/internal/wal"
)

func openTestWAL(t *testing.T) *wal.BadgerWAL {
	t.Helper()
	cfg := wal.DefaultConfig()
	cfg.Path = t.TempDir()
	w, err := wal.OpenForTesting(&cfg)
	if err != nil {
		t.Fatalf("open test WAL: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWALMetricsServicePublishesPendingCount(t *testing.T) {
	w := openTestWAL(t)
	if _, err := w.Write(context.Background(), map[string]string{"payload": "test"}); err != nil {
		t.Fatalf("write WAL entry: %v", err)
	}

	svc := NewWALMetricsService(w, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	<-done

	if got := testutil.ToFloat64(metrics.WALPendingEntries); got < 1 {
		t.Fatalf("expected pending entries gauge >= 1, got %v", got)
	}
}

func TestWALMetricsServiceString(t *testing.T) {
	w := openTestWAL(t)
	svc := NewWALMetricsService(w, 0)
	if svc.String() != "wal-metrics" {
		t.Fatalf("unexpected name: %s", svc.String())
	}
}
