// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package aggregate

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/events"
)

func ev(id, userID, route, action string) events.Event {
	return events.Event{EventID: id, UserID: userID, Route: route, Action: action, SessionID: "s1"}
}

func TestIngestSingleEvent(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)

	out := a.Ingest(now, []events.Event{ev("A", "u1", "/", "view")})

	for _, key := range []string{"1s", "5s", "60s"} {
		snap := out[key]
		if snap.Count != 1 || snap.Uniques != 1 || snap.Errors != 0 {
			t.Fatalf("window %s: got %+v", key, snap)
		}
		if len(snap.Routes) != 1 || snap.Routes[0] != (RouteCount{Route: "/", Count: 1}) {
			t.Fatalf("window %s: unexpected routes %+v", key, snap.Routes)
		}
	}
}

func TestRoutesSerializeAsTuples(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)
	a.Ingest(now, []events.Event{ev("A", "u1", "/", "view")})

	raw, err := json.Marshal(a.Snapshot(now)["1s"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	const want = `{"count":1,"uniques":1,"routes":[["/",1]],"errors":0}`
	if string(raw) != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}

func TestIngestErrorAction(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)

	out := a.Ingest(now, []events.Event{
		ev("A", "u1", "/", "view"),
		ev("B", "u1", "/", "click"),
		ev("C", "u1", "/", "error"),
	})

	for _, key := range []string{"1s", "5s", "60s"} {
		snap := out[key]
		if snap.Count != 3 || snap.Uniques != 1 || snap.Errors != 1 {
			t.Fatalf("window %s: got %+v", key, snap)
		}
	}
}

func TestTopRoutesOrdering(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)

	batch := make([]events.Event, 0, 12)
	for i := 0; i < 5; i++ {
		batch = append(batch, ev("a", "", "/a", "view"))
	}
	for i := 0; i < 3; i++ {
		batch = append(batch, ev("b", "", "/b", "view"))
	}
	for i := 0; i < 4; i++ {
		batch = append(batch, ev("c", "", "/c", "view"))
	}

	out := a.Ingest(now, batch)
	want := []RouteCount{{Route: "/a", Count: 5}, {Route: "/c", Count: 4}, {Route: "/b", Count: 3}}
	got := out["1s"].Routes
	if len(got) != len(want) {
		t.Fatalf("expected %d routes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("route %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTopRoutesTruncatesAtTen(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)

	batch := make([]events.Event, 0, 15)
	for i := 0; i < 15; i++ {
		batch = append(batch, ev("x", "", string(rune('a'+i)), "view"))
	}

	out := a.Ingest(now, batch)
	if len(out["1s"].Routes) > 10 {
		t.Fatalf("expected at most 10 routes, got %d", len(out["1s"].Routes))
	}
}

func TestBucketStartDerivation(t *testing.T) {
	cases := []struct {
		t    int64
		w    int
		want int64
	}{
		{1000, 1, 1000},
		{1999, 1, 1000},
		{1700000000123, 5, 1700000000000 / 5000 * 5000},
		{1700000000123, 60, 1700000000123 / 60000 * 60000},
	}
	for _, c := range cases {
		got := BucketStart(c.t, c.w)
		if got != c.want {
			t.Errorf("BucketStart(%d,%d) = %d, want %d", c.t, c.w, got, c.want)
		}
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)
	a.Ingest(now, []events.Event{ev("A", "u1", "/", "view")})

	before := a.Snapshot(now)
	after := a.Snapshot(now)
	if before["1s"].Count != after["1s"].Count {
		t.Fatal("snapshot call mutated aggregator state")
	}
	if before["1s"].Count != 1 {
		t.Fatalf("expected count 1, got %d", before["1s"].Count)
	}
}

func TestHorizonEviction(t *testing.T) {
	a := New()
	t0 := time.UnixMilli(1_700_000_000_000)
	a.Ingest(t0, []events.Event{ev("A", "u1", "/", "view")})

	later := t0.Add(5*60*time.Second + time.Millisecond)
	evicted := a.EvictBefore(later)
	if evicted == 0 {
		t.Fatal("expected at least one eviction")
	}

	snap := a.Snapshot(later)
	// The 60s bucket at bucketStart(t0,60) must be gone: Snapshot at `later`
	// queries the *new* active bucket, which is empty, proving the old one
	// was not carried forward.
	if snap["60s"].Count != 0 {
		t.Fatalf("expected evicted horizon to leave an empty active bucket, got count=%d", snap["60s"].Count)
	}
}

func TestSequentialIngestsAccumulate(t *testing.T) {
	a := New()
	now := time.UnixMilli(1_700_000_000_000)

	a.Ingest(now, []events.Event{ev("first", "", "/", "view")})
	a.Ingest(now, []events.Event{ev("second", "", "/", "view")})

	out := a.Snapshot(now)
	if out["1s"].Count != 2 {
		t.Fatalf("expected both sequential batches reflected, got count=%d", out["1s"].Count)
	}
}
