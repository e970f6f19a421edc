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
	"fmt"
	"reflect"
)

// Converter transforms a single value. It is the leaf of every conversion
// rule: given a raw argument (or a raw result), it returns the value to use
// in its place, or an error when the value cannot be converted.
//
// Type-constructor conversions (the equivalent of casting to int, float,
// string, bool) are Converters built by the factories in this package, so
// resolution treats hand-written functions and type constructors uniformly.
//
// Example:
//
//	upper := func(v any) (any, error) {
//	    s, ok := v.(string)
//	    if !ok {
//	        return nil, fmt.Errorf("want string, got %T", v)
//	    }
//	    return strings.ToUpper(s), nil
//	}
type Converter func(v any) (any, error)

// Rule is a single entry in a [Ruleset]: either a leaf [Converter] or a
// nested table that scopes further resolution. Exactly one of the two arms
// is set; construct rules with [Conv] or [Nested].
type Rule struct {
	conv  Converter
	table *Ruleset
}

// Conv returns a leaf Rule that applies fn.
func Conv(fn Converter) Rule {
	return Rule{conv: fn}
}

// Nested returns a Rule that resolves inside t, scoped to the matched
// attribute, argument, or source.
func Nested(t *Ruleset) Rule {
	return Rule{table: t}
}

// IsZero reports whether the rule has neither a converter nor a nested table.
// A zero Rule in the Else position means "no fallback"; anywhere else it is a
// configuration error.
func (r Rule) IsZero() bool {
	return r.conv == nil && r.table == nil
}

// TypeRule matches values by runtime type. Of matches a value when the
// value's dynamic type is identical to it, or when Of is an interface type
// the dynamic type implements. Entries are tried in declaration order and the
// first match wins, so list concrete types before the interfaces they
// implement.
type TypeRule struct {
	Of   reflect.Type
	Rule Rule
}

// TypeOf builds a TypeRule entry for type T.
//
// Example:
//
//	Types: []dispatch.TypeRule{
//	    dispatch.TypeOf[map[string]any](dispatch.Conv(dispatch.Identity())),
//	    dispatch.TypeOf[error](dispatch.Conv(stringify)),
//	}
func TypeOf[T any](r Rule) TypeRule {
	return TypeRule{Of: reflect.TypeOf((*T)(nil)).Elem(), Rule: r}
}

// Ruleset is a declarative conversion table. Rules are grouped into four
// categories consulted in strict precedence order (see [Ruleset.Resolve]):
// per-attribute, per-argument-name, per-value-type, and a fallback. Sources
// optionally scopes a whole sub-table to the channel a value arrived from
// (body, query string, or route capture) and is consulted before everything
// else for input values.
//
// A Ruleset is plain data: build it as a composite literal and hand it to
// [New] via [WithInputRules] or [WithOutputRules]. The wrapper validates and
// deep-copies it once at construction; the copy is immutable afterwards and
// shared by concurrent requests without locking.
//
// Example:
//
//	rules := &dispatch.Ruleset{
//	    Args: map[string]dispatch.Rule{
//	        "num": dispatch.Conv(dispatch.ToInt()),
//	    },
//	    Attrs: map[string]dispatch.Rule{
//	        "compute": dispatch.Nested(&dispatch.Ruleset{
//	            Args: map[string]dispatch.Rule{"op": dispatch.Conv(opByName)},
//	            Else: dispatch.Conv(dispatch.ToFloat()),
//	        }),
//	    },
//	}
type Ruleset struct {
	// Sources scopes rules to the channel a value arrived from. A source
	// table that yields no match falls through to the enclosing table.
	// Ignored for output resolution.
	Sources map[Kind]*Ruleset

	// Attrs holds per-attribute rules, the most specific category. A nested
	// table here is authoritative for its attribute: when it yields no
	// match, resolution completes with the identity conversion and the
	// enclosing Args/Types/Else are not consulted.
	Attrs map[string]Rule

	// Args holds per-argument-name rules. Nested tables scope the same way
	// attribute tables do.
	Args map[string]Rule

	// Types holds value-type rules, first match in declaration order.
	Types []TypeRule

	// Else is the fallback applied when nothing above matches. Leave zero
	// for no fallback (resolution then yields the identity conversion).
	Else Rule
}

// validate checks the table for construction errors: empty rules, empty
// keys, attribute sections inside attribute scopes, and source sections
// where they cannot apply. output forbids Sources anywhere in the table;
// inAttr marks tables reached through an Attrs entry.
func (rs *Ruleset) validate(output, inAttr bool, seen map[*Ruleset]bool) error {
	if rs == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidRuleset)
	}
	if seen[rs] {
		return fmt.Errorf("%w: table references itself", ErrInvalidRuleset)
	}
	seen[rs] = true
	defer delete(seen, rs)

	if len(rs.Sources) > 0 && output {
		return fmt.Errorf("%w: Sources have no meaning for output rules", ErrInvalidRuleset)
	}
	for kind, sub := range rs.Sources {
		if kind != KindBody && kind != KindQuery && kind != KindRoute {
			return fmt.Errorf("%w: unknown source kind %d", ErrInvalidRuleset, int(kind))
		}
		if err := sub.validate(output, inAttr, seen); err != nil {
			return err
		}
	}
	if len(rs.Attrs) > 0 && inAttr {
		return fmt.Errorf("%w: Attrs inside an attribute scope", ErrInvalidRuleset)
	}
	for name, r := range rs.Attrs {
		if err := validateRule("Attrs", name, r, output, true, seen); err != nil {
			return err
		}
	}
	for name, r := range rs.Args {
		if err := validateRule("Args", name, r, output, inAttr, seen); err != nil {
			return err
		}
	}
	for i, tr := range rs.Types {
		if tr.Of == nil {
			return fmt.Errorf("%w: Types[%d] has no type", ErrInvalidRuleset, i)
		}
		if tr.Rule.IsZero() {
			return fmt.Errorf("%w: Types[%d] (%s) has an empty rule", ErrInvalidRuleset, i, tr.Of)
		}
		if tr.Rule.table != nil {
			if err := tr.Rule.table.validate(output, inAttr, seen); err != nil {
				return err
			}
		}
	}
	if rs.Else.table != nil {
		return rs.Else.table.validate(output, inAttr, seen)
	}

	return nil
}

func validateRule(section, key string, r Rule, output, inAttr bool, seen map[*Ruleset]bool) error {
	if key == "" {
		return fmt.Errorf("%w: empty key in %s", ErrInvalidRuleset, section)
	}
	if r.IsZero() {
		return fmt.Errorf("%w: %s[%q] has an empty rule", ErrInvalidRuleset, section, key)
	}
	if r.table != nil {
		return r.table.validate(output, inAttr, seen)
	}

	return nil
}

// clone deep-copies the table structure. Converters are shared by reference;
// they are required to be pure.
func (rs *Ruleset) clone() *Ruleset {
	if rs == nil {
		return nil
	}
	out := &Ruleset{Else: rs.Else.clone()}
	if len(rs.Sources) > 0 {
		out.Sources = make(map[Kind]*Ruleset, len(rs.Sources))
		for k, sub := range rs.Sources {
			out.Sources[k] = sub.clone()
		}
	}
	if len(rs.Attrs) > 0 {
		out.Attrs = make(map[string]Rule, len(rs.Attrs))
		for k, r := range rs.Attrs {
			out.Attrs[k] = r.clone()
		}
	}
	if len(rs.Args) > 0 {
		out.Args = make(map[string]Rule, len(rs.Args))
		for k, r := range rs.Args {
			out.Args[k] = r.clone()
		}
	}
	if len(rs.Types) > 0 {
		out.Types = make([]TypeRule, len(rs.Types))
		for i, tr := range rs.Types {
			out.Types[i] = TypeRule{Of: tr.Of, Rule: tr.Rule.clone()}
		}
	}

	return out
}

func (r Rule) clone() Rule {
	if r.table != nil {
		return Rule{table: r.table.clone()}
	}

	return r
}
