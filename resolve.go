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

import "reflect"

// identity is the resolution floor: every lookup that matches nothing
// resolves to it, so dispatch never fails for lack of a rule.
func identity(v any) (any, error) {
	return v, nil
}

// Identity returns the conversion that passes values through unchanged.
// It is what resolution yields when no rule matches, and it can be used
// explicitly to pin an attribute or argument to "no conversion" inside a
// table whose broader rules would otherwise apply.
func Identity() Converter {
	return identity
}

// query carries one resolution lookup. Dimensions already matched by an
// enclosing scope are cleared before descending so a nested table cannot
// re-match them.
type query struct {
	kind Kind
	attr string
	arg  string
	val  any
}

// Resolve returns the conversion for one (attribute, argument, value)
// triple. It never returns nil: when no rule matches, the identity
// conversion is returned.
//
// Precedence, most to least specific:
//
//  1. Attrs[attr]
//  2. Args[arg]
//  3. Types, first entry matching the value's dynamic type
//  4. Else
//  5. identity
//
// A leaf rule ends resolution with its converter. A nested table under
// Attrs or Args is authoritative for its name: resolution continues inside
// it with that dimension cleared, and yields identity rather than falling
// back to the enclosing table when nothing inside matches. A nested table
// under Types or Else that yields no match falls through to the next
// candidate. Calling Resolve on a nil *Ruleset yields identity.
//
// Either name may be empty; an empty name skips its category.
func (rs *Ruleset) Resolve(attr, arg string, value any) Converter {
	return rs.resolveFrom(KindUnknown, attr, arg, value)
}

// ResolveOutput returns the conversion for an attribute's result. It is
// [Ruleset.Resolve] with no argument dimension: output values have no
// argument name and no source, so only Attrs, Types, and Else participate.
func (rs *Ruleset) ResolveOutput(attr string, value any) Converter {
	return rs.resolveFrom(KindUnknown, attr, "", value)
}

// resolveFrom is the source-aware entry point used during dispatch, where
// each merged argument remembers the channel it arrived from.
func (rs *Ruleset) resolveFrom(kind Kind, attr, arg string, value any) Converter {
	if rs == nil {
		return identity
	}
	if fn, ok := rs.find(query{kind: kind, attr: attr, arg: arg, val: value}); ok {
		return fn
	}

	return identity
}

// find runs one scoped scan over the table and reports whether the scan
// completed with a conversion.
func (rs *Ruleset) find(q query) (Converter, bool) {
	if rs == nil {
		return nil, false
	}

	// Source scope first. Unlike name scopes it is not authoritative: a
	// source table that matches nothing falls through to the general rules.
	if q.kind != KindUnknown {
		if sub, ok := rs.Sources[q.kind]; ok {
			sq := q
			sq.kind = KindUnknown
			if fn, ok := sub.find(sq); ok {
				return fn, true
			}
		}
	}

	if q.attr != "" {
		if r, ok := rs.Attrs[q.attr]; ok {
			sq := q
			sq.attr = ""
			return r.settle(sq), true
		}
	}
	if q.arg != "" {
		if r, ok := rs.Args[q.arg]; ok {
			sq := q
			sq.arg = ""
			return r.settle(sq), true
		}
	}
	for _, tr := range rs.Types {
		if !matchesType(tr.Of, q.val) {
			continue
		}
		if tr.Rule.conv != nil {
			return tr.Rule.conv, true
		}
		if fn, ok := tr.Rule.table.find(q); ok {
			return fn, true
		}
	}
	if rs.Else.conv != nil {
		return rs.Else.conv, true
	}
	if rs.Else.table != nil {
		return rs.Else.table.find(q)
	}

	return nil, false
}

// settle completes resolution for a name-scoped rule. The name scope owns
// its outcome: a nested table that matches nothing settles on identity
// instead of handing control back to the enclosing table.
func (r Rule) settle(q query) Converter {
	if r.conv != nil {
		return r.conv
	}
	if fn, ok := r.table.find(q); ok {
		return fn
	}

	return identity
}

// matchesType reports whether a value's dynamic type satisfies a Types
// entry. Untyped nil matches nothing; the Else rule is the place to handle
// absent values.
func matchesType(of reflect.Type, v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if t == of {
		return true
	}

	return of.Kind() == reflect.Interface && t.Implements(of)
}
