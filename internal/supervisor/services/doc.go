// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package services adapts Pulsewire's long-running components to
// suture.Service, translating the Start/Stop and ListenAndServe lifecycle
// patterns into suture's context-aware Serve(ctx) pattern. Components that
// already implement Serve(ctx)+String() directly, such as aggregate.Janitor
// and durability.Consumer, are added to the supervisor tree without a
// wrapper from this package.
package services
