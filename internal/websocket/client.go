// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/BiopticBug/pulsewire/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// Assigning from an atomic counter (rather than relying on map iteration or
// pointer identity) keeps broadcast fan-out order reproducible.
var clientIDCounter atomic.Uint64

// inboundFrame is the envelope used to sniff an inbound frame's type before
// decoding its type-specific payload.
type inboundFrame struct {
	Type   string          `json:"type"`
	Topic  string          `json:"topic"`
	Events json.RawMessage `json:"events"`
}

// Snapshotter produces the current agg_snapshot payload on demand, already
// framed and serialized. It is invoked synchronously in response to a
// subscribe frame so the snapshot-before-delta ordering guarantee holds.
type Snapshotter interface {
	SnapshotFrame() ([]byte, error)
}

// Ingester validates and applies an inbound events frame, returning the
// framed agg_delta payload to broadcast when at least one event survived
// validation.
type Ingester interface {
	IngestFrame(raw json.RawMessage) (frame []byte, accepted int, ok bool)
}

// Client is the per-connection state for a streaming session: a deterministic
// ID, the underlying socket, and an outstanding-bytes counter the Registry
// consults for backpressure decisions. Subscriptions are NOT stored here —
// they live in the Registry's topic side table — this struct only tracks
// which topic names it has asked to join, for unsubscribe-on-close bookkeeping.
type Client struct {
	id          uint64
	conn        *websocket.Conn
	send        chan []byte
	pending     atomic.Int64
	isClosed    atomic.Bool
	registry    *Registry
	snapshotter Snapshotter
	ingester    Ingester
	maxMsgBytes int64
	subject     string

	topicsMu sync.Mutex
	topics   map[string]struct{}
}

// NewClient creates a Client bound to a registry and the ingestion pipeline
// it should invoke for inbound "events" frames.
func NewClient(conn *websocket.Conn, registry *Registry, snapshotter Snapshotter, ingester Ingester, maxMsgBytes int64, subject string) *Client {
	return &Client{
		id:          clientIDCounter.Add(1),
		conn:        conn,
		send:        make(chan []byte, 64),
		registry:    registry,
		snapshotter: snapshotter,
		ingester:    ingester,
		maxMsgBytes: maxMsgBytes,
		subject:     subject,
		topics:      make(map[string]struct{}),
	}
}

// ID returns the client's unique identifier for deterministic ordering.
func (c *Client) ID() uint64 { return c.id }

func (c *Client) closed() bool            { return c.isClosed.Load() }
func (c *Client) outstandingBytes() int64 { return c.pending.Load() }

func (c *Client) addTopic(topic string) {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Client) clearTopics() {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	c.topics = make(map[string]struct{})
}

func (c *Client) topicSet() map[string]struct{} {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	cp := make(map[string]struct{}, len(c.topics))
	for t := range c.topics {
		cp[t] = struct{}{}
	}
	return cp
}

// enqueue places a pre-serialized frame on the client's send channel,
// tracking outstanding bytes for the registry's backpressure check. A full
// channel is treated the same as a slow subscriber: the frame is dropped.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
		c.pending.Add(int64(len(payload)))
	default:
		logging.Debug().Uint64("client_id", c.id).Msg("send channel full, dropping frame")
	}
}

// Close terminates the connection and unblocks any pending writePump/readPump.
func (c *Client) Close() {
	if c.isClosed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}

// ClosePolicyViolation closes the connection with a policy-violation close
// code and no further frames, per the auth-gating contract for unauthenticated
// streaming sessions.
func (c *Client) ClosePolicyViolation() {
	if c.isClosed.CompareAndSwap(false, true) {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.conn.Close()
	}
}

// Start launches the read and write pumps. Start returns immediately; the
// pumps run until the connection closes, at which point unsubscribeAll is
// invoked against registry.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump decodes inbound control/data frames and dispatches them per the
// streaming endpoint contract: subscribe acks with a synchronous snapshot,
// events feeds the shared ingestion pipeline, anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.registry.UnsubscribeAll(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.maxMsgBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if int64(len(data)) > c.maxMsgBytes {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "subscribe":
			if frame.Topic == "" {
				continue
			}
			// Build and enqueue the snapshot before registering the client in
			// the topic set, so a concurrent Broadcast can never land a delta
			// on c.send ahead of this snapshot.
			snap, err := c.snapshotter.SnapshotFrame()
			if err != nil {
				logging.Warn().Err(err).Msg("failed to build snapshot frame")
				continue
			}
			c.enqueue(snap)
			c.registry.Subscribe(c, frame.Topic)
		case "events":
			if frame.Events == nil {
				continue
			}
			deltaFrame, accepted, ok := c.ingester.IngestFrame(frame.Events)
			if !ok || accepted == 0 {
				continue
			}
			c.registry.Broadcast(GlobalDashboardTopic, deltaFrame)
		default:
			// Unknown shape: ignored silently per the streaming contract.
		}
	}
}

// writePump drains the send channel to the socket and maintains the
// ping/pong keep-alive, decrementing the outstanding-bytes counter as each
// frame leaves the queue.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.pending.Add(-int64(len(payload)))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
