// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package aggregate maintains the in-memory rolling-window aggregator: one
// sliding bucket per (window, bucketStart) cell, serialized on demand into
// the snapshot/delta payload shape subscribers receive.
package aggregate

import (
	"sort"

	"github.com/goccy/go-json"
)

// Windows is the fixed set of rolling window sizes, in seconds.
var Windows = [3]int{1, 5, 60}

// HorizonFactor bounds how many bucket-widths of history a window retains
// before the janitor evicts it.
const HorizonFactor = 5

// routeCount pairs a route with its occurrence count and the order in which
// it was first seen in the bucket, used to break count ties deterministically.
type routeCount struct {
	route      string
	count      int
	firstSeen  int
}

// bucket is a single aggregation cell for one (windowSec, bucketStart) pair.
type bucket struct {
	bucketStart int64
	count       int
	uniques     map[string]struct{}
	routes      map[string]*routeCount
	errors      int
	nextSeq     int
}

func newBucket(bucketStart int64) *bucket {
	return &bucket{
		bucketStart: bucketStart,
		uniques:     make(map[string]struct{}),
		routes:      make(map[string]*routeCount),
	}
}

func (b *bucket) apply(userID, route string, isError bool) {
	b.count++
	if userID != "" {
		b.uniques[userID] = struct{}{}
	}
	rc, ok := b.routes[route]
	if !ok {
		rc = &routeCount{route: route, firstSeen: b.nextSeq}
		b.nextSeq++
		b.routes[route] = rc
	}
	rc.count++
	if isError {
		b.errors++
	}
}

// RouteCount is a (route, count) pair in top-routes serialization order.
type RouteCount struct {
	Route string
	Count int
}

// MarshalJSON serializes a RouteCount as a ["route", count] tuple rather
// than an object, matching the Map-entries shape dashboard clients expect.
func (rc RouteCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{rc.Route, rc.Count})
}

// UnmarshalJSON decodes the ["route", count] tuple written by MarshalJSON.
func (rc *RouteCount) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &rc.Route); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &rc.Count)
}

// Snapshot is the serialized shape of a single window's active bucket.
type Snapshot struct {
	Count   int          `json:"count"`
	Uniques int          `json:"uniques"`
	Routes  []RouteCount `json:"routes"`
	Errors  int          `json:"errors"`
}

// maxTopRoutes bounds the serialized routes list length.
const maxTopRoutes = 10

func (b *bucket) serialize() Snapshot {
	routes := make([]*routeCount, 0, len(b.routes))
	for _, rc := range b.routes {
		routes = append(routes, rc)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].count != routes[j].count {
			return routes[i].count > routes[j].count
		}
		return routes[i].firstSeen < routes[j].firstSeen
	})
	if len(routes) > maxTopRoutes {
		routes = routes[:maxTopRoutes]
	}

	out := Snapshot{Count: b.count, Uniques: len(b.uniques), Errors: b.errors}
	out.Routes = make([]RouteCount, len(routes))
	for i, rc := range routes {
		out.Routes[i] = RouteCount{Route: rc.route, Count: rc.count}
	}
	return out
}

// BucketStart derives the aligned bucket-start instant (ms since epoch) for
// wall-clock instant tMillis and window w seconds.
func BucketStart(tMillis int64, windowSec int) int64 {
	width := int64(windowSec) * 1000
	return (tMillis / width) * width
}
