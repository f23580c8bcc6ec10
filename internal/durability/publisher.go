// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package durability

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/wal"
)

// relayPublisher wraps a Watermill/NATS publisher for the events subject.
type relayPublisher struct {
	pub    message.Publisher
	mu     sync.RWMutex
	closed bool
}

func newRelayPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*relayPublisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS publisher disconnected", err, nil)
			}
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("durability: create watermill publisher: %w", err)
	}
	return &relayPublisher{pub: pub}, nil
}

func (p *relayPublisher) publish(rec BatchRecord) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("durability: publisher is closed")
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("durability: marshal batch record: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("source", rec.Source)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	return p.pub.Publish(EventsSubject, msg)
}

func (p *relayPublisher) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.pub.Close()
}

// WALPublisher durably relays ingested batches to NATS JetStream: every
// batch is written to the WAL before the NATS publish attempt, so a crash
// between the two loses nothing — the background wal.RetryLoop republishes
// unconfirmed entries on restart (grounded on the same WAL-first ordering
// used for the durability buffer itself).
type WALPublisher struct {
	relay *relayPublisher
	wal   *wal.BadgerWAL
}

// NewWALPublisher wires a WAL-durable NATS publisher.
func NewWALPublisher(cfg PublisherConfig, w *wal.BadgerWAL, logger watermill.LoggerAdapter) (*WALPublisher, error) {
	relay, err := newRelayPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WALPublisher{relay: relay, wal: w}, nil
}

// PublishBatch writes rec to the WAL synchronously, then attempts the NATS
// publish and the WAL confirm in a background goroutine, so the caller never
// waits on the broker. A publish failure leaves the entry pending for
// wal.RetryLoop. If the WAL write itself fails, the batch is published
// directly in the background and is not retried. Failures are logged, and
// the returned error is always nil.
func (p *WALPublisher) PublishBatch(ctx context.Context, rec BatchRecord) error {
	entryID, err := p.wal.Write(ctx, rec)
	if err != nil {
		logging.Error().Err(err).Msg("WAL write failed for batch, publishing directly")
		go func() {
			if err := p.relay.publish(rec); err != nil {
				logging.Warn().Err(err).Msg("direct NATS publish failed, batch not relayed")
			}
		}()
		return nil
	}

	go func() {
		if err := p.relay.publish(rec); err != nil {
			logging.Warn().Str("wal_entry_id", entryID).Err(err).Msg("NATS publish failed, entry queued for retry")
			return
		}
		if err := p.wal.Confirm(context.Background(), entryID); err != nil {
			logging.Warn().Str("wal_entry_id", entryID).Err(err).Msg("WAL confirm failed")
		}
	}()
	return nil
}

// AsWALPublisher adapts this publisher's relay into a wal.Publisher, used by
// wal.RetryLoop to republish unconfirmed entries.
func (p *WALPublisher) AsWALPublisher() wal.Publisher {
	return wal.PublisherFunc(func(ctx context.Context, entry *wal.Entry) error {
		var rec BatchRecord
		if err := entry.UnmarshalPayload(&rec); err != nil {
			return fmt.Errorf("durability: unmarshal WAL entry payload: %w", err)
		}
		return p.relay.publish(rec)
	})
}

// Close shuts down the underlying NATS publisher.
func (p *WALPublisher) Close() error {
	return p.relay.close()
}
