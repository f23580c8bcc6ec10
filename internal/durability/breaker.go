// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package durability

import (
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/BiopticBug/pulsewire/internal/logging"
	"github.com/BiopticBug/pulsewire/internal/metrics"
)

// NewCircuitBreaker builds the breaker that guards the store stage from a
// DuckDB outage, tripping PersistenceBreakerOpenTotal on every state change
// into the open state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			if to == gobreaker.StateOpen {
				metrics.PersistenceBreakerOpenTotal.Inc()
			}
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}
