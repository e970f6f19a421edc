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

// DefaultTraverseDepth is how many exported struct fields a dotted
// attribute path may descend through unless [WithTraverseDepth] overrides
// it.
const DefaultTraverseDepth = 2

// Validator checks a decoded struct argument before the target is invoked.
// [rivaas.dev/dispatch/validate] provides an implementation backed by
// struct tags; any type with a matching Validate method satisfies it.
type Validator interface {
	Validate(v any) error
}

// ValidatorFunc adapts a plain function to the [Validator] interface.
type ValidatorFunc func(v any) error

// Validate calls f.
func (f ValidatorFunc) Validate(v any) error {
	return f(v)
}

// config collects the construction options. It is copied into the wrapper
// at [New] time; options never mutate a live wrapper.
type config struct {
	name          string
	allow         []string
	deny          []string
	allowPats     []string
	denyPats      []string
	in            *Ruleset
	out           *Ruleset
	formats       map[string]Converter
	defaults      map[string]map[string]any
	argNames      map[string][]string
	ctorArgs      []string
	traverseDepth int
	debug         bool
	validator     Validator
	events        Events
	help          map[string]string
}

// Option configures a wrapper during [New].
type Option func(*config)

func defaultConfig() *config {
	return &config{
		traverseDepth: DefaultTraverseDepth,
		formats:       make(map[string]Converter),
		defaults:      make(map[string]map[string]any),
		argNames:      make(map[string][]string),
		help:          make(map[string]string),
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return cfg
}

// WithName sets a human-readable name for the wrapper, used by transports
// for logging and discovery. It defaults to the target's type name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithAllow adds literal attribute names to the permissible set. Nothing is
// dispatchable until at least one allow entry exists, and every literal
// name must resolve to a capability or [New] fails.
//
// Example:
//
//	w, err := dispatch.New(store,
//	    dispatch.WithAllow("get", "put", "delete"),
//	)
func WithAllow(names ...string) Option {
	return func(c *config) {
		c.allow = append(c.allow, names...)
	}
}

// WithAllowPattern adds anchored regular expressions to the permissible
// set. Names matched only by pattern are exposed best-effort: methods whose
// signatures cannot be dispatched to are skipped rather than failing
// construction.
//
// Example:
//
//	dispatch.WithAllowPattern(`memory\..*`)
func WithAllowPattern(patterns ...string) Option {
	return func(c *config) {
		c.allowPats = append(c.allowPats, patterns...)
	}
}

// WithDeny removes literal names from the permissible set. Deny wins over
// every allow entry.
func WithDeny(names ...string) Option {
	return func(c *config) {
		c.deny = append(c.deny, names...)
	}
}

// WithDenyPattern removes pattern matches from the permissible set.
func WithDenyPattern(patterns ...string) Option {
	return func(c *config) {
		c.denyPats = append(c.denyPats, patterns...)
	}
}

// WithInputRules sets the conversion table applied to request arguments
// before invocation. The table is validated and deep-copied by [New].
func WithInputRules(rules *Ruleset) Option {
	return func(c *config) {
		c.in = rules
	}
}

// WithOutputRules sets the conversion table applied to results after
// invocation. Source sections are rejected here: results have no source.
func WithOutputRules(rules *Ruleset) Option {
	return func(c *config) {
		c.out = rules
	}
}

// WithFormat registers a named output rendering. A request that names a
// registered format bypasses the output rules; naming an unregistered
// format falls back to them. The format subpackages provide renderings for
// YAML, TOML, MessagePack, and Protobuf bodies.
//
// Example:
//
//	dispatch.WithFormat("msgpack", msgpack.Format())
func WithFormat(name string, fn Converter) Option {
	return func(c *config) {
		if name == "" || fn == nil {
			return
		}
		c.formats[name] = fn
	}
}

// WithDefaults supplies fallback argument values for one attribute. A
// default applies when no source carries the argument, and it passes
// through the input rules exactly like a request value.
//
// Example:
//
//	dispatch.WithDefaults("greet", map[string]any{"greeting": "hello"})
func WithDefaults(attr string, values map[string]any) Option {
	return func(c *config) {
		if len(values) == 0 {
			return
		}
		m := c.defaults[attr]
		if m == nil {
			m = make(map[string]any, len(values))
			c.defaults[attr] = m
		}
		for k, v := range values {
			m[k] = v
		}
	}
}

// WithArgNames names the positional parameters of one method so they can be
// filled from named request values. The list must cover every parameter
// after the optional context. Without it, methods may only take zero
// arguments or a single struct (or map) argument.
//
// Example:
//
//	// func (c *Calc) Add(a, b float64) float64
//	dispatch.WithArgNames("add", "a", "b")
func WithArgNames(attr string, names ...string) Option {
	return func(c *config) {
		c.argNames[attr] = names
	}
}

// WithConstructorArgs names the parameters of a constructor target so they
// can be popped from the merged request values. Required when the target is
// a function with parameters; rejected otherwise.
//
// Example:
//
//	// func NewSession(user string) (*Session, error)
//	w, err := dispatch.New(NewSession,
//	    dispatch.WithConstructorArgs("user"),
//	    dispatch.WithAllow("ping"),
//	)
func WithConstructorArgs(names ...string) Option {
	return func(c *config) {
		c.ctorArgs = append(c.ctorArgs, names...)
	}
}

// WithTraverseDepth bounds dotted attribute paths. Depth 0 disables
// traversal entirely; the default is [DefaultTraverseDepth].
func WithTraverseDepth(depth int) Option {
	return func(c *config) {
		if depth >= 0 {
			c.traverseDepth = depth
		}
	}
}

// WithDebug exposes upstream failure detail to transports. Without it,
// adapters mask upstream errors behind a generic message; routing and
// conversion errors are always reported in full.
func WithDebug() Option {
	return func(c *config) {
		c.debug = true
	}
}

// WithValidator validates struct arguments after decoding and before
// invocation. Validation failures surface as conversion errors.
func WithValidator(v Validator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithEvents registers observation hooks. Hooks run inline on the dispatch
// path and must be fast; nil hooks are skipped.
func WithEvents(ev Events) Option {
	return func(c *config) {
		c.events = ev
	}
}

// WithHelp attaches a usage line to one attribute, surfaced by
// [Wrapper.Describe] and transport discovery endpoints.
func WithHelp(attr, text string) Option {
	return func(c *config) {
		c.help[attr] = text
	}
}
