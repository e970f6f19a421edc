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
	"net/url"
	"reflect"
	"unicode"
)

type capKind uint8

const (
	capMethod capKind = iota
	capField
)

type invokeMode uint8

const (
	modeNoArg invokeMode = iota
	modeStruct
	modeNamed
)

type param struct {
	name string
	typ  reflect.Type
}

// capEntry is one dispatchable capability, resolved once at construction.
// For methods, path leads to the receiver and method indexes into the
// receiver's method set; for fields, path leads to the field itself.
type capEntry struct {
	name    string
	kind    capKind
	path    []int
	method  int
	recvPtr bool

	takesCtx    bool
	mode        invokeMode
	params      []param
	structParam reflect.Type

	outType   reflect.Type
	hasErr    bool
	fieldType reflect.Type
}

// Leaf struct types a dotted path never descends into, mirroring the
// treatment of opaque stdlib types elsewhere in rivaas.
var opaqueTypes = map[reflect.Type]bool{
	timeType:                               true,
	reflect.TypeOf((*url.URL)(nil)).Elem(): true,
}

// enumerate builds the capability table for a target type: every permitted
// exported method and field, including dotted paths through nested structs
// up to the configured depth. Names allowed by literal must resolve;
// pattern-only matches are best-effort.
func enumerate(root reflect.Type, cfg *config, perms *permissions) (map[string]*capEntry, error) {
	caps := make(map[string]*capEntry)
	walker := &capWalker{cfg: cfg, perms: perms, caps: caps, visiting: make(map[reflect.Type]bool)}
	addressable := root.Kind() == reflect.Pointer
	if err := walker.collect(root, "", nil, 0, addressable); err != nil {
		return nil, err
	}
	for name := range perms.allowNames {
		if !perms.permit(name) {
			continue
		}
		if _, ok := caps[name]; !ok {
			return nil, fmt.Errorf("%w: allowed name %q", ErrUnknownCapability, name)
		}
	}
	for attr := range cfg.argNames {
		c, ok := caps[attr]
		if !ok {
			return nil, fmt.Errorf("%w: argument names for %q", ErrUnknownCapability, attr)
		}
		if c.kind != capMethod {
			return nil, fmt.Errorf("%w: argument names for attribute %q", ErrInvalidOption, attr)
		}
	}
	for attr := range cfg.defaults {
		if _, ok := caps[attr]; !ok {
			return nil, fmt.Errorf("%w: defaults for %q", ErrUnknownCapability, attr)
		}
	}

	return caps, nil
}

type capWalker struct {
	cfg      *config
	perms    *permissions
	caps     map[string]*capEntry
	visiting map[reflect.Type]bool
}

// collect registers the capabilities reachable at one path prefix. Fields
// are registered before methods so that a field shadows a promoted method
// of the same name, matching Go's own selector rules.
func (w *capWalker) collect(t reflect.Type, prefix string, path []int, depth int, addressable bool) error {
	elem := t
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
		addressable = true
	}

	if elem.Kind() == reflect.Struct {
		for i := 0; i < elem.NumField(); i++ {
			f := elem.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name := prefix + attrName(f.Name)
			fpath := append(append([]int(nil), path...), i)
			if w.perms.permit(name) && fieldKindOK(f.Type) {
				w.caps[name] = &capEntry{
					name:      name,
					kind:      capField,
					path:      fpath,
					fieldType: f.Type,
					outType:   f.Type,
				}
			}
			ft := f.Type
			childAddr := addressable
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
				childAddr = true
			}
			if ft.Kind() != reflect.Struct || opaqueTypes[ft] {
				continue
			}
			if depth >= w.cfg.traverseDepth || w.visiting[ft] {
				continue
			}
			w.visiting[ft] = true
			err := w.collect(f.Type, name+".", fpath, depth+1, childAddr)
			delete(w.visiting, ft)
			if err != nil {
				return err
			}
		}
	}

	owner := t
	if owner.Kind() != reflect.Pointer && owner.Kind() != reflect.Interface && addressable {
		owner = reflect.PointerTo(owner)
	}
	recvPtr := owner.Kind() == reflect.Pointer
	// Interface method types carry no receiver parameter.
	hasRecv := owner.Kind() != reflect.Interface
	for i := 0; i < owner.NumMethod(); i++ {
		m := owner.Method(i)
		if m.PkgPath != "" {
			continue
		}
		name := prefix + attrName(m.Name)
		if !w.perms.permit(name) {
			continue
		}
		if _, exists := w.caps[name]; exists {
			continue
		}
		entry, err := parseMethod(name, m, i, path, recvPtr, hasRecv, w.cfg)
		if err != nil {
			if w.perms.literal(name) {
				return err
			}
			continue
		}
		w.caps[name] = entry
	}

	return nil
}

// parseMethod classifies one method signature into an invocation mode, or
// rejects it as undispatchable.
func parseMethod(name string, m reflect.Method, idx int, path []int, recvPtr, hasRecv bool, cfg *config) (*capEntry, error) {
	ft := m.Type
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: %q is variadic", ErrUnsupportedSignature, name)
	}

	entry := &capEntry{
		name:    name,
		kind:    capMethod,
		path:    append([]int(nil), path...),
		method:  idx,
		recvPtr: recvPtr,
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errType {
			entry.hasErr = true
		} else {
			entry.outType = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errType {
			return nil, fmt.Errorf("%w: %q second result must be error", ErrUnsupportedSignature, name)
		}
		entry.outType = ft.Out(0)
		entry.hasErr = true
	default:
		return nil, fmt.Errorf("%w: %q returns too many values", ErrUnsupportedSignature, name)
	}

	first := 0
	if hasRecv {
		first = 1
	}
	if ft.NumIn() > first && ft.In(first) == ctxType {
		entry.takesCtx = true
		first++
	}
	var rest []reflect.Type
	for i := first; i < ft.NumIn(); i++ {
		rest = append(rest, ft.In(i))
	}

	names := cfg.argNames[name]
	switch {
	case len(names) > 0:
		if len(names) != len(rest) {
			return nil, fmt.Errorf("%w: %q takes %d arguments, %d names given",
				ErrUnsupportedSignature, name, len(rest), len(names))
		}
		seen := make(map[string]bool, len(names))
		for i, argName := range names {
			if argName == "" || seen[argName] {
				return nil, fmt.Errorf("%w: %q has a duplicate or empty argument name", ErrUnsupportedSignature, name)
			}
			seen[argName] = true
			entry.params = append(entry.params, param{name: argName, typ: rest[i]})
		}
		entry.mode = modeNamed
	case len(rest) == 0:
		entry.mode = modeNoArg
	case len(rest) == 1 && structArg(rest[0]):
		entry.mode = modeStruct
		entry.structParam = rest[0]
	default:
		return nil, fmt.Errorf("%w: %q needs argument names (see WithArgNames)", ErrUnsupportedSignature, name)
	}

	return entry, nil
}

// structArg reports whether a single parameter can be filled from the whole
// argument map: a struct, a pointer to struct, or map[string]any.
func structArg(t reflect.Type) bool {
	if t == mapStringAnyType {
		return true
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Kind() == reflect.Struct && !opaqueTypes[t]
}

// fieldKindOK filters out field types that can never serve as a response
// value.
func fieldKindOK(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

// walkPath descends exported fields from the root, dereferencing pointers
// along the way. A nil pointer anywhere on the path is reported as
// [ErrNilTarget].
func walkPath(v reflect.Value, path []int) (reflect.Value, error) {
	for _, i := range path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, ErrNilTarget
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}

	return v, nil
}

// attrName maps an exported Go name to its attribute spelling by lowering
// the leading uppercase run: Greet becomes greet, URL becomes url, and
// HTTPServer becomes httpServer.
func attrName(s string) string {
	rs := []rune(s)
	n := 0
	for n < len(rs) && unicode.IsUpper(rs[n]) {
		n++
	}
	if n == 0 {
		return s
	}
	if n < len(rs) && n > 1 {
		n--
	}
	for i := 0; i < n; i++ {
		rs[i] = unicode.ToLower(rs[i])
	}

	return string(rs)
}
