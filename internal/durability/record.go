// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package durability relays validated event batches from the WAL (internal/wal)
// through an embedded NATS JetStream instance to the DuckDB store stage
// (internal/persistence).
package durability

import "github.com/BiopticBug/pulsewire/internal/events"

// EventsSubject is the JetStream subject every batch record is published to.
const EventsSubject = "pulsewire.raw"

// StreamName is the JetStream stream backing EventsSubject.
const StreamName = "PULSEWIRE_EVENTS"

// BatchRecord is the WAL/NATS wire payload for one ingested batch. ReceivedAtMillis
// is the receipt instant the in-memory aggregator used to derive its bucket
// keys; the store-stage consumer reuses it so persisted aggregates land in
// the same (window, bucketStart) cells as the in-memory ones.
type BatchRecord struct {
	ReceivedAtMillis int64          `json:"receivedAtMs"`
	Source           string         `json:"source"`
	Events           []events.Event `json:"events"`
}
