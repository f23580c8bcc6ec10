// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package events

import (
	"errors"

	"github.com/goccy/go-json"
)

// ErrMalformedBatch is returned when the raw payload is neither a JSON
// object nor a JSON array of objects.
var ErrMalformedBatch = errors.New("events: payload is neither an object nor an array")

// wireEvent mirrors the wire shape with pointer fields so presence and type
// can be distinguished from a valid-but-empty value.
type wireEvent struct {
	EventID   *string                `json:"eventId"`
	TS        *float64               `json:"ts"`
	UserID    *string                `json:"userId"`
	SessionID *string                `json:"sessionId"`
	Route     *string                `json:"route"`
	Action    *string                `json:"action"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ParseBatch decodes a request or frame payload that is either a single
// event object or a JSON array of event objects into raw wire records.
func ParseBatch(raw []byte) ([]wireEvent, error) {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var batch []wireEvent
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, ErrMalformedBatch
		}
		return batch, nil
	case '{':
		var single wireEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, ErrMalformedBatch
		}
		return []wireEvent{single}, nil
	default:
		return nil, ErrMalformedBatch
	}
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}

// Validate applies the field presence/type rules from the data model to each
// wire record, dropping offending records silently (per-record filtering,
// not batch rejection) and injecting a default empty metadata map when
// absent. The returned slice preserves input order.
func Validate(batch []wireEvent) []Event {
	out := make([]Event, 0, len(batch))
	for _, w := range batch {
		ev, ok := validateOne(w)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func validateOne(w wireEvent) (Event, bool) {
	if w.EventID == nil || *w.EventID == "" {
		return Event{}, false
	}
	if w.TS == nil || *w.TS < 0 {
		return Event{}, false
	}
	if w.SessionID == nil || *w.SessionID == "" {
		return Event{}, false
	}
	if w.Route == nil || *w.Route == "" {
		return Event{}, false
	}
	if w.Action == nil || *w.Action == "" {
		return Event{}, false
	}

	userID := ""
	if w.UserID != nil {
		userID = *w.UserID
	}

	metadata := w.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return Event{
		EventID:   *w.EventID,
		TS:        int64(*w.TS),
		UserID:    userID,
		SessionID: *w.SessionID,
		Route:     *w.Route,
		Action:    *w.Action,
		Metadata:  metadata,
	}, true
}
