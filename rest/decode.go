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

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decoder turns one request body into named dispatch values. Decoders are
// selected by the request's Content-Type; register extras with
// [WithDecoder]. The yaml, toml, msgpack, and proto subpackages provide
// ready-made implementations.
type Decoder interface {
	// ContentType is the media type this decoder claims, without
	// parameters.
	ContentType() string

	// Decode parses a whole request body into named values.
	Decode(data []byte) (map[string]any, error)
}

// JSON returns the built-in JSON body decoder. Every [App] registers it
// already; it is exported for re-registration under a different media type
// via [WithDecoder] wrappers.
func JSON() Decoder {
	return jsonDecoder{}
}

type jsonDecoder struct{}

func (jsonDecoder) ContentType() string {
	return "application/json"
}

// Decode parses a JSON object. Numbers stay json.Number so integer
// precision survives until a conversion rule decides the real type.
func (jsonDecoder) Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	return m, nil
}
