// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"sync/atomic"
	"time"
)

// Events holds optional hooks observed during dispatch. Any field may be
// nil. Hooks run inline; do the minimum and hand off anything slow.
//
// Example:
//
//	dispatch.WithEvents(dispatch.Events{
//	    Failed: func(attr string, err error) {
//	        logger.Warn("dispatch failed", "attr", attr, "err", err)
//	    },
//	})
type Events struct {
	// ArgConverted fires after each argument conversion succeeds, with the
	// channel the raw value arrived from.
	ArgConverted func(attr, arg string, from Kind)

	// Dispatched fires after a request completes successfully.
	Dispatched func(attr string, d time.Duration)

	// Failed fires when a request fails, with the classified error.
	Failed func(attr string, err error)
}

// Stats is a point-in-time snapshot of a wrapper's cumulative counters.
type Stats struct {
	// Dispatches counts every request, successful or not.
	Dispatches uint64

	// RouteErrors counts requests rejected before reaching the target.
	RouteErrors uint64

	// ConvertErrors counts argument and result conversion failures.
	ConvertErrors uint64

	// UpstreamErrors counts failures inside the target.
	UpstreamErrors uint64
}

// stats is the live counter set, safe for concurrent dispatch.
type stats struct {
	dispatches     atomic.Uint64
	routeErrors    atomic.Uint64
	convertErrors  atomic.Uint64
	upstreamErrors atomic.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Dispatches:     s.dispatches.Load(),
		RouteErrors:    s.routeErrors.Load(),
		ConvertErrors:  s.convertErrors.Load(),
		UpstreamErrors: s.upstreamErrors.Load(),
	}
}
