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

// Kind identifies the channel a request value arrived from. It scopes
// source-specific conversion rules ([Ruleset.Sources]) and is reported to
// the [Events.ArgConverted] hook.
type Kind int

// Source kinds, in merge order. When the same name appears in several
// sources the later kind wins: route captures override query parameters,
// which override body fields.
const (
	// KindUnknown marks values with no channel: injected defaults and
	// direct library calls that bypass a transport.
	KindUnknown Kind = iota

	// KindBody holds fields decoded from a request body.
	KindBody

	// KindQuery holds query-string parameters.
	KindQuery

	// KindRoute holds values captured from the route pattern.
	KindRoute
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindQuery:
		return "query"
	case KindRoute:
		return "route"
	default:
		return "unknown"
	}
}

// Source is one named bag of raw request values.
type Source struct {
	Kind   Kind
	Values map[string]any
}

// Request is a transport-neutral dispatch request: which attribute to reach
// and the raw values to reach it with. Adapters build one per incoming
// call; tests and direct callers build them by hand.
type Request struct {
	// Attr names the capability to dispatch to. Dotted paths descend into
	// exported fields: "memory.add" calls Add on the Memory field.
	Attr string

	// Format optionally names a rendering registered with [WithFormat].
	// A recognized name takes precedence over the output rules; an
	// unrecognized one is ignored.
	Format string

	// Sources holds the raw values in merge order, earliest first.
	Sources []Source
}

// Args builds a single-source request, the common shape for tests and
// direct calls.
func Args(attr string, values map[string]any) Request {
	return Request{Attr: attr, Sources: []Source{{Kind: KindUnknown, Values: values}}}
}

// merge flattens the sources into one argument map, later sources winning,
// and records each winner's channel for source-scoped rule resolution. The
// caller owns the returned maps; request sources are never mutated.
func (r Request) merge() (map[string]any, map[string]Kind) {
	args := make(map[string]any)
	origin := make(map[string]Kind)
	for _, src := range r.Sources {
		for name, v := range src.Values {
			args[name] = v
			origin[name] = src.Kind
		}
	}

	return args, origin
}
