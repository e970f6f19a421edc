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

// Package msgpack provides MessagePack transport support for the dispatch
// package.
//
// This package extends rivaas.dev/dispatch with MessagePack request decoding
// and response rendering, using github.com/vmihailenco/msgpack/v5 for
// serialization.
//
// Example:
//
//	app := rest.New(rest.WithDecoder(msgpack.Decoder()))
//
//	w, err := dispatch.New(svc,
//	    dispatch.WithAllow("snapshot"),
//	    dispatch.WithFormat("msgpack", msgpack.Format(msgpack.WithJSONTag())),
//	)
package msgpack

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/rest"
)

// ContentType is the media type accepted and produced by this package.
const ContentType = "application/msgpack"

// Option configures MessagePack transport behavior.
type Option func(*config)

// config holds MessagePack-specific transport configuration.
type config struct {
	contentType string
	useJSONTag  bool
}

// WithContentType overrides the media type the decoder registers under and
// the type stamped on rendered output. Useful for clients that send
// application/x-msgpack.
func WithContentType(ct string) Option {
	return func(c *config) {
		c.contentType = ct
	}
}

// WithJSONTag makes rendered structs follow their json struct tags.
// By default, msgpack struct tags are used.
func WithJSONTag() Option {
	return func(c *config) {
		c.useJSONTag = true
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{contentType: ContentType}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Decoder returns a body decoder for MessagePack request payloads.
//
// Register it with the REST adapter to accept MessagePack bodies alongside
// JSON:
//
//	app := rest.New(rest.WithDecoder(msgpack.Decoder()))
func Decoder(opts ...Option) rest.Decoder {
	return &decoder{cfg: applyOptions(opts)}
}

type decoder struct {
	cfg *config
}

func (d *decoder) ContentType() string { return d.cfg.contentType }

func (d *decoder) Decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid MessagePack body: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

// Format returns an output converter that renders results as MessagePack.
//
// Register it under a format name so binary-capable clients can opt in
// per request:
//
//	w, err := dispatch.New(svc, dispatch.WithFormat("msgpack", msgpack.Format()))
func Format(opts ...Option) dispatch.Converter {
	cfg := applyOptions(opts)

	return func(v any) (any, error) {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		if cfg.useJSONTag {
			enc.SetCustomStructTag("json")
		}
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode MessagePack: %w", err)
		}

		return &dispatch.Encoded{ContentType: cfg.contentType, Body: buf.Bytes()}, nil
	}
}
