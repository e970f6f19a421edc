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
	"reflect"
	"sort"
	"strings"
)

// Capability describes one dispatchable name for discovery. Transports
// serve the list from their help endpoint; it is also handy in tests to
// see exactly what a wrapper exposes.
type Capability struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Params  []Param `json:"params,omitempty"`
	Returns string  `json:"returns,omitempty"`
	Help    string  `json:"help,omitempty"`
}

// Param describes one named argument of a capability.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
}

// Capabilities returns the sorted names of everything the wrapper exposes.
func (w *Wrapper) Capabilities() []string {
	names := make([]string, 0, len(w.caps))
	for name := range w.caps {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Describe returns the full capability descriptors, sorted by name.
func (w *Wrapper) Describe() []Capability {
	out := make([]Capability, 0, len(w.caps))
	for _, name := range w.Capabilities() {
		out = append(out, w.describe(w.caps[name]))
	}

	return out
}

func (w *Wrapper) describe(c *capEntry) Capability {
	d := Capability{Name: c.name, Help: w.cfg.help[c.name]}
	defaults := w.cfg.defaults[c.name]

	switch c.kind {
	case capField:
		d.Kind = "attribute"
		d.Returns = c.fieldType.String()
	case capMethod:
		d.Kind = "method"
		if c.outType != nil {
			d.Returns = c.outType.String()
		}
		switch c.mode {
		case modeNamed:
			for _, p := range c.params {
				d.Params = append(d.Params, Param{Name: p.name, Type: p.typ.String(), Default: defaults[p.name]})
			}
		case modeStruct:
			d.Params = structFields(c.structParam, defaults)
		}
	}

	return d
}

// structFields flattens a struct-mode parameter into per-field descriptors,
// honoring json tags the way the decoder does.
func structFields(t reflect.Type, defaults map[string]any) []Param {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var out []Param
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := f.Tag.Get("json")
		if comma := strings.IndexByte(name, ','); comma >= 0 {
			name = name[:comma]
		}
		if name == "-" {
			continue
		}
		if name == "" {
			name = attrName(f.Name)
		}
		out = append(out, Param{Name: name, Type: f.Type.String(), Default: defaults[name]})
	}

	return out
}
