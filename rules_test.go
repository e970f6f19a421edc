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

package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
)

// label returns a converter that replaces any value with a marker, making
// the winning rule observable.
func label(s string) dispatch.Converter {
	return func(any) (any, error) {
		return s, nil
	}
}

func apply(t *testing.T, fn dispatch.Converter, v any) any {
	t.Helper()
	out, err := fn(v)
	require.NoError(t, err)

	return out
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	rs := &dispatch.Ruleset{
		Attrs: map[string]dispatch.Rule{
			"compute": dispatch.Conv(label("attr")),
		},
		Args: map[string]dispatch.Rule{
			"num": dispatch.Conv(label("arg")),
		},
		Types: []dispatch.TypeRule{
			dispatch.TypeOf[string](dispatch.Conv(label("type"))),
		},
		Else: dispatch.Conv(label("else")),
	}

	tests := []struct {
		name string
		attr string
		arg  string
		val  any
		want any
	}{
		{name: "attribute wins over argument", attr: "compute", arg: "num", val: "x", want: "attr"},
		{name: "argument wins over type", attr: "other", arg: "num", val: "x", want: "arg"},
		{name: "type wins over fallback", attr: "other", arg: "other", val: "x", want: "type"},
		{name: "fallback", attr: "other", arg: "other", val: 42, want: "else"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fn := rs.Resolve(tt.attr, tt.arg, tt.val)
			assert.Equal(t, tt.want, apply(t, fn, tt.val))
		})
	}
}

func TestResolveIdentityFloor(t *testing.T) {
	t.Parallel()

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()

		fn := (&dispatch.Ruleset{}).Resolve("a", "b", 42)
		require.NotNil(t, fn)
		assert.Equal(t, 42, apply(t, fn, 42))
	})

	t.Run("nil table", func(t *testing.T) {
		t.Parallel()

		var rs *dispatch.Ruleset
		fn := rs.Resolve("a", "b", "v")
		require.NotNil(t, fn)
		assert.Equal(t, "v", apply(t, fn, "v"))
	})

	t.Run("no match leaves value alone", func(t *testing.T) {
		t.Parallel()

		rs := &dispatch.Ruleset{
			Args: map[string]dispatch.Rule{"num": dispatch.Conv(label("arg"))},
		}
		fn := rs.Resolve("attr", "other", 7)
		assert.Equal(t, 7, apply(t, fn, 7))
	})
}

func TestResolveNestedAttrScope(t *testing.T) {
	t.Parallel()

	rs := &dispatch.Ruleset{
		Attrs: map[string]dispatch.Rule{
			"compute": dispatch.Nested(&dispatch.Ruleset{
				Args: map[string]dispatch.Rule{"x": dispatch.Conv(label("inner"))},
			}),
		},
		Args: map[string]dispatch.Rule{
			"x": dispatch.Conv(label("outer")),
			"y": dispatch.Conv(label("outer")),
		},
	}

	t.Run("inner rule wins inside the scope", func(t *testing.T) {
		t.Parallel()

		fn := rs.Resolve("compute", "x", 1)
		assert.Equal(t, "inner", apply(t, fn, 1))
	})

	t.Run("scope owns unmatched names", func(t *testing.T) {
		t.Parallel()

		// y has no rule inside compute's table, so it resolves to
		// identity there; the outer rule for y does not leak in.
		fn := rs.Resolve("compute", "y", 9)
		assert.Equal(t, 9, apply(t, fn, 9))
	})

	t.Run("outer rule still applies elsewhere", func(t *testing.T) {
		t.Parallel()

		fn := rs.Resolve("other", "y", 9)
		assert.Equal(t, "outer", apply(t, fn, 9))
	})
}

func TestResolveNestedArgScope(t *testing.T) {
	t.Parallel()

	rs := &dispatch.Ruleset{
		Args: map[string]dispatch.Rule{
			"arr": dispatch.Nested(&dispatch.Ruleset{
				Types: []dispatch.TypeRule{
					dispatch.TypeOf[string](dispatch.Conv(dispatch.Chain(dispatch.Split(","), dispatch.ToFloats()))),
				},
			}),
		},
		Else: dispatch.Conv(label("else")),
	}

	t.Run("type rule inside the argument scope", func(t *testing.T) {
		t.Parallel()

		fn := rs.Resolve("", "arr", "1,2")
		assert.Equal(t, []float64{1, 2}, apply(t, fn, "1,2"))
	})

	t.Run("non-string inside the scope resolves to identity", func(t *testing.T) {
		t.Parallel()

		in := []float64{3, 4}
		fn := rs.Resolve("", "arr", in)
		assert.Equal(t, in, apply(t, fn, in))
	})
}

func TestResolveTypeOrder(t *testing.T) {
	t.Parallel()

	// First matching entry wins, so the concrete type shadows the
	// interface listed after it.
	rs := &dispatch.Ruleset{
		Types: []dispatch.TypeRule{
			dispatch.TypeOf[string](dispatch.Conv(label("string"))),
			dispatch.TypeOf[any](dispatch.Conv(label("any"))),
		},
	}

	fn := rs.Resolve("", "", "s")
	assert.Equal(t, "string", apply(t, fn, "s"))

	fn = rs.Resolve("", "", 42)
	assert.Equal(t, "any", apply(t, fn, 42))
}

func TestResolveOutput(t *testing.T) {
	t.Parallel()

	rs := &dispatch.Ruleset{
		Attrs: map[string]dispatch.Rule{"status": dispatch.Conv(dispatch.ToString())},
		Types: []dispatch.TypeRule{
			dispatch.TypeOf[map[string]any](dispatch.Conv(dispatch.Identity())),
		},
		Else: dispatch.Conv(dispatch.Envelope("_result")),
	}

	t.Run("attribute rule", func(t *testing.T) {
		t.Parallel()

		fn := rs.ResolveOutput("status", 200)
		assert.Equal(t, "200", apply(t, fn, 200))
	})

	t.Run("maps pass through", func(t *testing.T) {
		t.Parallel()

		m := map[string]any{"a": 1}
		fn := rs.ResolveOutput("other", m)
		assert.Equal(t, m, apply(t, fn, m))
	})

	t.Run("everything else is wrapped", func(t *testing.T) {
		t.Parallel()

		fn := rs.ResolveOutput("other", 3.5)
		assert.Equal(t, map[string]any{"_result": 3.5}, apply(t, fn, 3.5))
	})
}

func TestRulesetValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  dispatch.Option
	}{
		{
			name: "empty rule",
			opt: dispatch.WithInputRules(&dispatch.Ruleset{
				Args: map[string]dispatch.Rule{"x": {}},
			}),
		},
		{
			name: "empty key",
			opt: dispatch.WithInputRules(&dispatch.Ruleset{
				Args: map[string]dispatch.Rule{"": dispatch.Conv(dispatch.ToInt())},
			}),
		},
		{
			name: "attrs inside an attribute scope",
			opt: dispatch.WithInputRules(&dispatch.Ruleset{
				Attrs: map[string]dispatch.Rule{
					"a": dispatch.Nested(&dispatch.Ruleset{
						Attrs: map[string]dispatch.Rule{"b": dispatch.Conv(dispatch.ToInt())},
					}),
				},
			}),
		},
		{
			name: "sources in output rules",
			opt: dispatch.WithOutputRules(&dispatch.Ruleset{
				Sources: map[dispatch.Kind]*dispatch.Ruleset{
					dispatch.KindBody: {Else: dispatch.Conv(dispatch.ToString())},
				},
			}),
		},
		{
			name: "unknown source kind",
			opt: dispatch.WithInputRules(&dispatch.Ruleset{
				Sources: map[dispatch.Kind]*dispatch.Ruleset{
					dispatch.Kind(99): {Else: dispatch.Conv(dispatch.ToString())},
				},
			}),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dispatch.New(&pingSvc{}, dispatch.WithAllow("ping"), tt.opt)
			require.Error(t, err)
			assert.ErrorIs(t, err, dispatch.ErrInvalidRuleset)
		})
	}

	t.Run("self reference", func(t *testing.T) {
		t.Parallel()

		rs := &dispatch.Ruleset{}
		rs.Else = dispatch.Nested(rs)
		_, err := dispatch.New(&pingSvc{}, dispatch.WithAllow("ping"), dispatch.WithInputRules(rs))
		require.Error(t, err)
		assert.ErrorIs(t, err, dispatch.ErrInvalidRuleset)
	})
}

func TestRulesetCopiedAtConstruction(t *testing.T) {
	t.Parallel()

	rs := &dispatch.Ruleset{
		Args: map[string]dispatch.Rule{"n": dispatch.Conv(dispatch.ToInt())},
	}
	w := dispatch.TestWrapper(t, &echoSvc{}, dispatch.WithAllow("echo"), dispatch.WithInputRules(rs))

	// Mutating the caller's table after construction must not affect the
	// wrapper.
	rs.Args["n"] = dispatch.Conv(label("mutated"))

	out, err := w.Dispatch(context.Background(), dispatch.Args("echo", map[string]any{"n": "42"}))
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, 42, m["n"])
}
