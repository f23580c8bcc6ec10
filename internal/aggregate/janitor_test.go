// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package aggregate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BiopticBug/pulsewire/internal/events"
)

type fakePurger struct {
	calls atomic.Int64
	ttl   atomic.Int64
}

func (f *fakePurger) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	f.calls.Add(1)
	f.ttl.Store(int64(ttl))
	return 3, nil
}

func TestJanitorEvictsOutOfHorizonBuckets(t *testing.T) {
	agg := New()
	old := time.Unix(0, 0)
	agg.Ingest(old, []events.Event{{EventID: "e1", UserID: "u1", SessionID: "s1", Route: "/a", Action: "view", Metadata: map[string]interface{}{}}})

	j := NewJanitor(agg, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = j.Serve(ctx)
		close(done)
	}()
	<-done

	agg.mu.Lock()
	defer agg.mu.Unlock()
	for _, w := range Windows {
		if len(agg.windows[w]) != 0 {
			t.Fatalf("expected window %d to have no buckets after eviction, got %d", w, len(agg.windows[w]))
		}
	}
}

func TestJanitorPurgesRawEventsWhenConfigured(t *testing.T) {
	agg := New()
	purger := &fakePurger{}
	j := NewJanitor(agg, 10*time.Millisecond).WithRawEventPurge(purger, 7*24*time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	_ = j.Serve(ctx)

	if purger.calls.Load() == 0 {
		t.Fatal("expected PurgeExpired to have been called at least once")
	}
	if time.Duration(purger.ttl.Load()) != 7*24*time.Hour {
		t.Fatalf("unexpected ttl passed to purger: %v", time.Duration(purger.ttl.Load()))
	}
}
