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

// Package dispatch turns plain Go objects into dispatchable capability
// sets: named methods and fields that can be reached with string-keyed
// argument bags from any transport, with declarative conversion between
// the wire's untyped values and the target's real signatures.
//
// The core loop is deliberate and small. A [Request] names an attribute
// and carries raw values grouped by [Source]. [Wrapper.Dispatch] checks
// the attribute against the permissible set, merges the sources, converts
// each argument through the input [Ruleset], invokes the capability, and
// converts the result through the output rules. Everything configurable
// is fixed at [New] time; a built wrapper is immutable and safe for
// concurrent use.
//
// # Wrapping an object
//
//	type Greeter struct{}
//
//	func (Greeter) Greet(args struct {
//	    Name  string `json:"name"`
//	    Times int    `json:"times"`
//	}) string {
//	    return strings.Repeat("hello "+args.Name+" ", args.Times)
//	}
//
//	w, err := dispatch.New(Greeter{},
//	    dispatch.WithAllow("greet"),
//	    dispatch.WithInputRules(&dispatch.Ruleset{
//	        Args: map[string]dispatch.Rule{
//	            "times": dispatch.Conv(dispatch.ToInt()),
//	        },
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	out, err := w.Dispatch(ctx, dispatch.Args("greet", map[string]any{
//	    "name": "world", "times": "2",
//	}))
//
// Attribute names are the exported Go names with the leading uppercase
// run lowered, and dotted paths descend through exported struct fields:
// "memory.add" reaches Add on the Memory field.
//
// # Conversion rules
//
// A [Ruleset] maps arguments to conversions along four axes, consulted in
// strict precedence order: the attribute being dispatched, the argument
// name, the value's runtime type, and a fallback. Rules nest: an entry can
// scope a whole sub-table to one attribute, one argument, or one request
// source. Resolution never fails. When nothing matches, a value passes
// through unchanged, so an empty table is a working configuration and
// rules are added only where the defaults are wrong.
//
// # Permissions
//
// Nothing is dispatchable until allowed. [WithAllow] names capabilities
// literally and fails construction when a name does not resolve;
// [WithAllowPattern] exposes whatever matches and silently skips methods
// that cannot be dispatched to. [WithDeny] and [WithDenyPattern] veto
// both.
//
// # Errors
//
// Every dispatch failure is one of three kinds. [RouteError] means the
// request never reached the target. [ConvertError] means a value could
// not be converted, in either direction. [UpstreamError] means the target
// itself failed, by error or panic. Each carries an HTTP status and a
// stable code, so transports map failures mechanically.
//
// # Transports
//
// The package is transport-neutral. [rivaas.dev/dispatch/rest] serves
// wrappers over HTTP; the yaml, toml, msgpack, and proto subpackages add
// request decoders and response renderings for those encodings. A
// converter that returns [*Encoded] short-circuits response encoding
// entirely.
package dispatch
