// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package events defines the validated event record and the batch validator
// that gates every ingestion path before it reaches the aggregator.
package events

// ActionError is the action value that is semantically special: events
// carrying it increment a bucket's error counter.
const ActionError = "error"

// Event is a validated, normalized event record. Metadata defaults to an
// empty map when absent from the wire payload rather than being merged in
// via dynamic object spread.
type Event struct {
	EventID   string                 `json:"eventId"`
	TS        int64                  `json:"ts"`
	UserID    string                 `json:"userId"`
	SessionID string                 `json:"sessionId"`
	Route     string                 `json:"route"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// IsError reports whether this event's action is the special error action.
func (e Event) IsError() bool { return e.Action == ActionError }
