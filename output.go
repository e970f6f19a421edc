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

// Encoded is a fully rendered response body. A converter that returns
// *Encoded tells the transport the result is already serialized: adapters
// write Body with ContentType verbatim instead of encoding the value
// themselves. The format subpackages produce it; hand-written converters
// can too.
type Encoded struct {
	ContentType string
	Body        []byte
}

// renderOutput converts a result for the response. A recognized named
// format takes precedence over the output rules; an unrecognized name falls
// through to them, and with no rules the value passes unchanged.
func (w *Wrapper) renderOutput(attr, format string, v any) (any, error) {
	var fn Converter
	if format != "" {
		fn = w.cfg.formats[format]
	}
	if fn == nil {
		fn = w.out.ResolveOutput(attr, v)
	}
	out, err := fn(v)
	if err != nil {
		return nil, &ConvertError{Attr: attr, Value: v, Output: true, Err: err}
	}

	return out, nil
}
