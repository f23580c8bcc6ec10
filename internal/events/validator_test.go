// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package events

import "testing"

func TestParseBatch(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		batch, err := ParseBatch([]byte(`{"eventId":"a","ts":1,"sessionId":"s","route":"/","action":"view"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(batch) != 1 {
			t.Fatalf("expected 1 record, got %d", len(batch))
		}
	})

	t.Run("array", func(t *testing.T) {
		batch, err := ParseBatch([]byte(`[{"eventId":"a","ts":1,"sessionId":"s","route":"/","action":"view"},{"eventId":"b","ts":2,"sessionId":"s","route":"/","action":"view"}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(batch) != 2 {
			t.Fatalf("expected 2 records, got %d", len(batch))
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := ParseBatch([]byte(`"just a string"`)); err != ErrMalformedBatch {
			t.Fatalf("expected ErrMalformedBatch, got %v", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		batch, err := ParseBatch([]byte(``))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch != nil {
			t.Fatalf("expected nil batch for empty payload, got %v", batch)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("well-formed event passes and defaults metadata", func(t *testing.T) {
		batch, _ := ParseBatch([]byte(`{"eventId":"a","ts":1000,"userId":"u1","sessionId":"s1","route":"/","action":"view"}`))
		out := Validate(batch)
		if len(out) != 1 {
			t.Fatalf("expected 1 valid event, got %d", len(out))
		}
		if out[0].Metadata == nil {
			t.Fatal("expected metadata to default to an empty map")
		}
	})

	t.Run("missing sessionId is dropped silently", func(t *testing.T) {
		batch, _ := ParseBatch([]byte(`[{"eventId":"a","ts":1,"route":"/","action":"view"},{"eventId":"b","ts":1,"sessionId":"s","route":"/","action":"view"}]`))
		out := Validate(batch)
		if len(out) != 1 {
			t.Fatalf("expected 1 surviving event, got %d", len(out))
		}
		if out[0].EventID != "b" {
			t.Fatalf("expected surviving event to be 'b', got %q", out[0].EventID)
		}
	})

	t.Run("negative ts is dropped", func(t *testing.T) {
		batch, _ := ParseBatch([]byte(`{"eventId":"a","ts":-1,"sessionId":"s","route":"/","action":"view"}`))
		if out := Validate(batch); len(out) != 0 {
			t.Fatalf("expected event with negative ts to be dropped, got %d", len(out))
		}
	})

	t.Run("empty action is dropped", func(t *testing.T) {
		batch, _ := ParseBatch([]byte(`{"eventId":"a","ts":1,"sessionId":"s","route":"/","action":""}`))
		if out := Validate(batch); len(out) != 0 {
			t.Fatalf("expected event with empty action to be dropped, got %d", len(out))
		}
	})

	t.Run("error action marked", func(t *testing.T) {
		batch, _ := ParseBatch([]byte(`{"eventId":"a","ts":1,"sessionId":"s","route":"/","action":"error"}`))
		out := Validate(batch)
		if len(out) != 1 || !out[0].IsError() {
			t.Fatalf("expected error action event to be flagged")
		}
	})
}
