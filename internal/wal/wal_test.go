// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package wal

import (
	"context"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	return cfg
}

func openTestWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	cfg := testConfig(t)
	w, err := OpenForTesting(&cfg)
	if err != nil {
		t.Fatalf("open test WAL: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriteThenGetPendingReturnsEntry(t *testing.T) {
	w := openTestWAL(t)
	id, err := w.Write(context.Background(), map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty entry id")
	}

	pending, err := w.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}
	if pending[0].ID != id {
		t.Fatalf("pending entry id mismatch: got %s, want %s", pending[0].ID, id)
	}
}

func TestConfirmRemovesFromPending(t *testing.T) {
	w := openTestWAL(t)
	id, err := w.Write(context.Background(), map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := w.Confirm(context.Background(), id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	pending, err := w.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected 0 pending entries after confirm, got %d", len(pending))
	}

	stats := w.Stats()
	if stats.ConfirmedCount != 1 {
		t.Fatalf("expected 1 confirmed entry, got %d", stats.ConfirmedCount)
	}
}

func TestStatsReflectsPendingAndConfirmedCounts(t *testing.T) {
	w := openTestWAL(t)
	for i := 0; i < 3; i++ {
		if _, err := w.Write(context.Background(), map[string]int{"n": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	stats := w.Stats()
	if stats.PendingCount != 3 {
		t.Fatalf("expected 3 pending entries, got %d", stats.PendingCount)
	}
	if stats.TotalWrites != 3 {
		t.Fatalf("expected 3 total writes, got %d", stats.TotalWrites)
	}
}

func TestDeleteEntryRemovesConfirmedEntry(t *testing.T) {
	w := openTestWAL(t)
	id, err := w.Write(context.Background(), map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Confirm(context.Background(), id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := w.DeleteEntry(context.Background(), id); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	stats := w.Stats()
	if stats.ConfirmedCount != 0 {
		t.Fatalf("expected 0 confirmed entries after delete, got %d", stats.ConfirmedCount)
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	w := openTestWAL(t)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := w.Write(context.Background(), map[string]string{"hello": "world"}); err == nil {
		t.Fatal("expected Write on a closed WAL to fail")
	}
}
