// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package durability

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	natsgo "github.com/nats-io/nats.go"

	"github.com/BiopticBug/pulsewire/internal/aggregate"
	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/persistence"
)

// Consumer subscribes to EventsSubject and writes every relayed batch
// into the DuckDB store stage, guarded by a circuit breaker so a sustained
// DuckDB outage fails fast: a batch that cannot be stored is nacked for
// JetStream redelivery rather than piling up goroutines, keeping ingestion
// non-blocking.
type Consumer struct {
	sub     message.Subscriber
	store   *persistence.Store
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewConsumer creates a durable JetStream consumer bound to StreamName.
func NewConsumer(cfg SubscriberConfig, store *persistence.Store, breaker *gobreaker.CircuitBreaker[interface{}], logger watermill.LoggerAdapter) (*Consumer, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.BindStream(StreamName),
		natsgo.DeliverAll(),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("durability: create watermill subscriber: %w", err)
	}

	return &Consumer{sub: sub, store: store, breaker: breaker}, nil
}

// Serve consumes EventsSubject until ctx is canceled, persisting each
// batch's raw events and rolling the aggregates forward. Implements
// suture.Service so it can be supervised alongside the rest of the
// messaging layer.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.sub.Subscribe(ctx, EventsSubject)
	if err != nil {
		return fmt.Errorf("durability: subscribe to %s: %w", EventsSubject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

// String satisfies suture.Service.
func (c *Consumer) String() string { return "durability-consumer" }

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	var rec BatchRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping unparseable relayed batch")
		msg.Ack()
		return
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.persist(ctx, rec)
	})
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("persisting relayed batch failed, will retry")
		msg.Nack()
		return
	}
	msg.Ack()
}

// persist writes rec's raw events and increments every window's aggregate
// row using the same bucket-start derivation the in-memory aggregator used
// at receipt time, so the persisted and in-memory views land in the same
// buckets.
func (c *Consumer) persist(ctx context.Context, rec BatchRecord) error {
	if _, err := c.store.InsertRawBatch(ctx, rec.Events, rec.Source); err != nil {
		return fmt.Errorf("durability: insert raw batch: %w", err)
	}

	if len(rec.Events) == 0 {
		return nil
	}
	errs := 0
	for _, ev := range rec.Events {
		if ev.IsError() {
			errs++
		}
	}

	for _, windowSec := range aggregate.Windows {
		bucketStart := aggregate.BucketStart(rec.ReceivedAtMillis, windowSec)
		if err := c.store.UpsertAggregate(ctx, windowSec, bucketStart, len(rec.Events), errs); err != nil {
			return fmt.Errorf("durability: upsert aggregate window=%d: %w", windowSec, err)
		}
	}
	return nil
}

// Close shuts down the underlying subscriber.
func (c *Consumer) Close() error {
	return c.sub.Close()
}
