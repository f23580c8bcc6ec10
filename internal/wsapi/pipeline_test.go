// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package wsapi

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
)

func TestSnapshotFrameShapeIsEmptyBeforeAnyIngest(t *testing.T) {
	p := NewPipeline(aggregate.New(), nil, DefaultSource)

	raw, err := p.SnapshotFrame()
	if err != nil {
		t.Fatalf("SnapshotFrame returned error: %v", err)
	}

	var frame outboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("failed to unmarshal snapshot frame: %v", err)
	}
	if frame.Type != "agg_snapshot" {
		t.Fatalf("expected type agg_snapshot, got %q", frame.Type)
	}
	for _, w := range aggregate.Windows {
		snap, ok := frame.Data[aggregate.WindowKey(w)]
		if !ok {
			t.Fatalf("missing window key %s in snapshot", aggregate.WindowKey(w))
		}
		if snap.Count != 0 {
			t.Fatalf("expected zero count for window %s, got %d", aggregate.WindowKey(w), snap.Count)
		}
	}
}

func TestIngestFrameAppliesValidEventsAndFramesDelta(t *testing.T) {
	p := NewPipeline(aggregate.New(), nil, DefaultSource)

	raw := json.RawMessage(`[
		{"eventId":"e1","ts":1,"userId":"u1","sessionId":"s1","route":"/a","action":"view"},
		{"eventId":"e2","ts":2,"userId":"u1","sessionId":"s1","route":"/a","action":"error"},
		{"eventId":"","ts":3,"userId":"u1","sessionId":"s1","route":"/a","action":"view"}
	]`)

	frame, accepted, ok := p.IngestFrame(raw)
	if !ok {
		t.Fatal("expected ok=true for a well-formed batch")
	}
	if accepted != 2 {
		t.Fatalf("expected 2 accepted events (one dropped for missing eventId), got %d", accepted)
	}

	var out outboundFrame
	if err := json.Unmarshal(frame, &out); err != nil {
		t.Fatalf("failed to unmarshal delta frame: %v", err)
	}
	if out.Type != "agg_delta" {
		t.Fatalf("expected type agg_delta, got %q", out.Type)
	}
	snap := out.Data[aggregate.WindowKey(1)]
	if snap.Count != 2 {
		t.Fatalf("expected count 2 in 1s window, got %d", snap.Count)
	}
	if snap.Errors != 1 {
		t.Fatalf("expected 1 error in 1s window, got %d", snap.Errors)
	}
}

func TestIngestFrameEmptyBatchReportsOkZeroAccepted(t *testing.T) {
	p := NewPipeline(aggregate.New(), nil, DefaultSource)

	frame, accepted, ok := p.IngestFrame(json.RawMessage(`[]`))
	if !ok {
		t.Fatal("expected ok=true for an empty but well-formed batch")
	}
	if accepted != 0 {
		t.Fatalf("expected 0 accepted, got %d", accepted)
	}
	if frame != nil {
		t.Fatalf("expected nil frame when nothing survived validation, got %q", frame)
	}
}

func TestIngestFrameMalformedPayloadReportsNotOk(t *testing.T) {
	p := NewPipeline(aggregate.New(), nil, DefaultSource)

	_, _, ok := p.IngestFrame(json.RawMessage(`not json`))
	if ok {
		t.Fatal("expected ok=false for a malformed payload")
	}
}
