// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/metrics"
)

// GlobalDashboardTopic is the only topic the dashboard streaming clients subscribe to.
const GlobalDashboardTopic = "dashboard:global"

// DefaultBackpressureThreshold is the outstanding-bytes cutoff past which a
// subscriber is skipped for the current broadcast rather than blocked on.
const DefaultBackpressureThreshold = 1 << 20 // 1 MiB

// Registry maintains topic -> set<client> subscriptions and fans out
// broadcast payloads with a best-effort backpressure policy: a connection
// whose outstanding send-queue has reached BackpressureThreshold is skipped for
// that payload rather than stalling the broadcaster.
//
// Subscriptions are represented as a side table keyed by topic, never as
// mutation hung off the connection itself.
type Registry struct {
	mu                    sync.RWMutex
	topics                map[string]map[*Client]struct{}
	BackpressureThreshold int64
}

// NewRegistry creates an empty topic registry.
func NewRegistry() *Registry {
	return &Registry{
		topics:                make(map[string]map[*Client]struct{}),
		BackpressureThreshold: DefaultBackpressureThreshold,
	}
}

// Subscribe adds the connection to a topic's subscriber set. Idempotent.
func (r *Registry) Subscribe(c *Client, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.topics[topic]
	if !ok {
		set = make(map[*Client]struct{})
		r.topics[topic] = set
	}
	set[c] = struct{}{}
	c.addTopic(topic)
}

// UnsubscribeAll removes the connection from every topic it held and deletes
// any topic left empty. Called on connection close.
func (r *Registry) UnsubscribeAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic := range c.topicSet() {
		set, ok := r.topics[topic]
		if !ok {
			continue
		}
		delete(set, c)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
	c.clearTopics()
}

// Broadcast serializes nothing itself — payload is already-serialized bytes
// produced once by the caller — and enqueues it to every open subscriber of
// topic whose outstanding byte count is below BackpressureThreshold. Slow
// subscribers are skipped for this payload, never blocked on.
//
// Subscribers are visited in a deterministic (ID-ordered) sequence so that
// broadcast fan-out is reproducible for a given topic membership, even
// though no cross-connection delivery order is promised by the contract.
func (r *Registry) Broadcast(topic string, payload []byte) {
	r.mu.RLock()
	set, ok := r.topics[topic]
	if !ok {
		r.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	threshold := r.BackpressureThreshold
	if threshold <= 0 {
		threshold = DefaultBackpressureThreshold
	}

	for _, c := range clients {
		if c.closed() {
			metrics.BroadcastSkippedTotal.Inc()
			continue
		}
		if c.outstandingBytes() >= threshold {
			logging.Debug().Uint64("client_id", c.id).Str("topic", topic).Msg("skipping slow subscriber for delta")
			metrics.BroadcastSkippedTotal.Inc()
			continue
		}
		c.enqueue(payload)
	}
}

// SubscriberCount returns the number of connections currently subscribed to topic.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Shutdown closes every tracked client. Used during supervised shutdown so
// that no connection is left dangling when the process exits.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	seen := make(map[*Client]struct{})
	for _, set := range r.topics {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	r.topics = make(map[string]map[*Client]struct{})
	r.mu.Unlock()

	for c := range seen {
		c.Close()
	}
}
