// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package wsapi implements the streaming endpoint: the authenticated
// WebSocket upgrade handler and the Snapshotter/Ingester pipeline that
// internal/websocket.Client dispatches subscribe/events frames into.
package wsapi

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
	"github.com/BiopticBug/pulsewire/internal/durability"
	"github.com/BiopticBug/pulsewire/internal/events"
	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/metrics"
)

// DefaultSource labels batches ingested over the streaming endpoint, as
// opposed to the request endpoint's "http" (cmd/server constructs the
// request endpoint's Pipeline with that source instead).
const DefaultSource = "ws"

// outboundFrame is the envelope shape for both agg_snapshot and agg_delta
// payloads: a type tag and the window-keyed aggregate data.
type outboundFrame struct {
	Type string             `json:"type"`
	Data aggregate.Windowed `json:"data"`
}

// Pipeline wires the in-memory aggregator and the async durability
// publisher into the ws.Snapshotter/ws.Ingester interfaces the per-connection
// Client dispatches frames into. A single Pipeline is shared by every
// streaming connection; internal/httpapi holds its own Pipeline instance,
// constructed against the same aggregator and publisher, labeled "http".
type Pipeline struct {
	agg       *aggregate.Aggregator
	publisher *durability.WALPublisher
	source    string
}

// NewPipeline creates a Pipeline bound to the shared aggregator and
// durability publisher, labeling relayed batches and ingestion metrics with
// source. publisher may be nil, in which case ingested events are applied to
// the aggregator but never durably relayed — used only by tests that
// exercise the aggregation path in isolation.
func NewPipeline(agg *aggregate.Aggregator, publisher *durability.WALPublisher, source string) *Pipeline {
	return &Pipeline{agg: agg, publisher: publisher, source: source}
}

// SnapshotFrame implements ws.Snapshotter: the current state of every
// window, framed as an agg_snapshot payload.
func (p *Pipeline) SnapshotFrame() ([]byte, error) {
	windowed := p.agg.Snapshot(time.Now())
	return json.Marshal(outboundFrame{Type: "agg_snapshot", Data: windowed})
}

// IngestFrame implements ws.Ingester: it parses and validates the raw events
// payload, applies whatever survives to the aggregator, relays the batch for
// durable persistence, and frames the post-ingestion window state as an
// agg_delta payload. ok is false only when the frame's JSON shape itself is
// unparseable; a batch that parses but validates down to zero events still
// reports ok=true with accepted=0, matching the silent per-record drop
// contract shared with the request endpoint.
func (p *Pipeline) IngestFrame(raw json.RawMessage) (frame []byte, accepted int, ok bool) {
	wireBatch, err := events.ParseBatch(raw)
	if err != nil {
		return nil, 0, false
	}

	validated := events.Validate(wireBatch)
	if dropped := len(wireBatch) - len(validated); dropped > 0 {
		metrics.EventsDroppedTotal.Add(float64(dropped))
	}
	if len(validated) == 0 {
		return nil, 0, true
	}

	payload, err := p.Ingest(time.Now(), validated)
	if err != nil {
		return nil, 0, false
	}
	return payload, len(validated), true
}

// Ingest applies an already-validated batch to the aggregator at receivedAt,
// relays it for durable persistence, and returns the resulting agg_delta
// frame. Shared by IngestFrame (streaming endpoint) and internal/httpapi's
// /ingest handler (request endpoint) so both transports drive the aggregator
// and the durability pipeline identically.
func (p *Pipeline) Ingest(receivedAt time.Time, batch []events.Event) ([]byte, error) {
	windowed := p.agg.Ingest(receivedAt, batch)
	metrics.EventsIngestedTotal.WithLabelValues(p.source).Add(float64(len(batch)))

	p.relay(receivedAt, batch)

	payload, err := json.Marshal(outboundFrame{Type: "agg_delta", Data: windowed})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal agg_delta frame")
		return nil, err
	}
	return payload, nil
}

// relay hands the validated batch to the durability publisher so it survives
// a crash between ingestion and the asynchronous DuckDB store stage. Relay
// failures are logged, never surfaced to the streaming caller: durability is
// best-effort from the connection's point of view. The broadcast path waits
// only for the local WAL write, never for the NATS publish or DuckDB.
func (p *Pipeline) relay(receivedAt time.Time, batch []events.Event) {
	if p.publisher == nil {
		return
	}
	rec := durability.BatchRecord{
		ReceivedAtMillis: receivedAt.UnixMilli(),
		Source:           p.source,
		Events:           batch,
	}
	if err := p.publisher.PublishBatch(context.Background(), rec); err != nil {
		logging.Warn().Err(err).Msg("failed to relay event batch for durable persistence")
	}
}
