// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package aggregate

import (
	"fmt"
	"sync"
	"time"

	"github.com/BiopticBug/pulsewire/internal/events"
)

// Aggregator maintains the per-window sliding bucket maps. A single mutex
// guards all windows: updates within one ingest call are applied atomically
// across every window before the lock is released, and the order in which
// callers acquire the lock is the order their deltas are produced — callers
// are expected to broadcast in that same order.
type Aggregator struct {
	mu      sync.Mutex
	windows map[int]map[int64]*bucket
}

// New creates an Aggregator with empty bucket maps for every configured window.
func New() *Aggregator {
	a := &Aggregator{windows: make(map[int]map[int64]*bucket)}
	for _, w := range Windows {
		a.windows[w] = make(map[int64]*bucket)
	}
	return a
}

// WindowKey formats a window size in seconds as its wire key, e.g. "1s".
func WindowKey(windowSec int) string {
	return fmt.Sprintf("%ds", windowSec)
}

// Windowed is the snapshot/delta payload shape: one Snapshot per window key.
type Windowed map[string]Snapshot

// Ingest applies every event in the batch to the active bucket of each
// window at receipt time now, then returns the post-ingestion serialization
// of each window's active bucket. The whole batch is applied under a single
// lock acquisition, so ingestion is batch-atomic: there is no partial state
// visible to a concurrent reader.
func (a *Aggregator) Ingest(now time.Time, batch []events.Event) Windowed {
	nowMillis := now.UnixMilli()

	a.mu.Lock()
	defer a.mu.Unlock()

	result := make(Windowed, len(Windows))
	for _, w := range Windows {
		start := BucketStart(nowMillis, w)
		b := a.activeBucketLocked(w, start)
		for _, ev := range batch {
			b.apply(ev.UserID, ev.Route, ev.IsError())
		}
		result[WindowKey(w)] = b.serialize()
	}
	return result
}

// Snapshot computes the same payload shape as Ingest against now, without
// mutating aggregator state. A window whose active bucket does not yet exist
// serializes as zero values rather than creating one.
func (a *Aggregator) Snapshot(now time.Time) Windowed {
	nowMillis := now.UnixMilli()

	a.mu.Lock()
	defer a.mu.Unlock()

	result := make(Windowed, len(Windows))
	for _, w := range Windows {
		start := BucketStart(nowMillis, w)
		if b, ok := a.windows[w][start]; ok {
			result[WindowKey(w)] = b.serialize()
		} else {
			result[WindowKey(w)] = Snapshot{Routes: []RouteCount{}}
		}
	}
	return result
}

// activeBucketLocked returns (creating lazily if absent) the bucket for
// window w at bucketStart. Caller must hold a.mu.
func (a *Aggregator) activeBucketLocked(w int, bucketStart int64) *bucket {
	m := a.windows[w]
	b, ok := m[bucketStart]
	if !ok {
		b = newBucket(bucketStart)
		m[bucketStart] = b
	}
	return b
}

// EvictBefore removes every bucket across all windows whose bucketStart
// falls outside the configured horizon as of now. It is safe to call
// concurrently with Ingest/Snapshot: the whole sweep runs under the same
// lock so eviction never races with an update to the currently-active bucket.
func (a *Aggregator) EvictBefore(now time.Time) int {
	nowMillis := now.UnixMilli()

	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for _, w := range Windows {
		cutoff := nowMillis - int64(HorizonFactor*w)*1000
		m := a.windows[w]
		for start := range m {
			if start < cutoff {
				delete(m, start)
				evicted++
			}
		}
	}
	return evicted
}
