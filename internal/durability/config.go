// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package durability

import "time"

// PublisherConfig configures the Watermill/NATS publisher used by the relay
// stage.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production-sane publisher settings.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1,
		ReconnectWait:   time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// SubscriberConfig configures the Watermill/NATS subscriber used by the
// store-stage consumer.
type SubscriberConfig struct {
	URL            string
	DurableName    string
	QueueGroup     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
	CloseTimeout   time.Duration
}

// DefaultSubscriberConfig returns production-sane subscriber settings.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		DurableName:    "pulsewire-store",
		QueueGroup:     "pulsewire-store",
		MaxReconnects:  -1,
		ReconnectWait:  time.Second,
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
	}
}

// CircuitBreakerConfig configures the breaker guarding the DuckDB store
// stage against sustained failures.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns the default persistence breaker
// settings: trip after 5 consecutive failures, half-open after 30s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "persistence-store",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}
