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

// Package toml provides TOML transport support for the dispatch package.
//
// This package extends rivaas.dev/dispatch with TOML request decoding and
// TOML response rendering, using github.com/BurntSushi/toml for parsing.
//
// Example:
//
//	app := rest.New(rest.WithDecoder(toml.Decoder()))
//
//	w, err := dispatch.New(svc,
//	    dispatch.WithAllow("config"),
//	    dispatch.WithFormat("toml", toml.Format()),
//	)
package toml

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/rest"
)

// ContentType is the media type accepted and produced by this package.
const ContentType = "application/toml"

// Option configures TOML transport behavior.
type Option func(*config)

// config holds TOML-specific transport configuration.
type config struct {
	contentType string
	indent      string
}

// WithContentType overrides the media type the decoder registers under and
// the type stamped on rendered output.
func WithContentType(ct string) Option {
	return func(c *config) {
		c.contentType = ct
	}
}

// WithIndent sets the indentation string for nested tables in rendered
// output. The default is two spaces.
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		contentType: ContentType,
		indent:      "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Decoder returns a body decoder for TOML request payloads.
//
// Register it with the REST adapter to accept TOML bodies alongside JSON:
//
//	app := rest.New(rest.WithDecoder(toml.Decoder()))
func Decoder(opts ...Option) rest.Decoder {
	return &decoder{cfg: applyOptions(opts)}
}

type decoder struct {
	cfg *config
}

func (d *decoder) ContentType() string { return d.cfg.contentType }

func (d *decoder) Decode(data []byte) (map[string]any, error) {
	m := map[string]any{}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid TOML body: %w", err)
	}

	return m, nil
}

// Format returns an output converter that renders results as TOML.
//
// TOML documents need a table at the top level, so scalar and slice
// results must be wrapped first. Chain an envelope in front when the
// capability returns one:
//
//	dispatch.WithFormat("toml", dispatch.Chain(dispatch.Envelope("result"), toml.Format()))
func Format(opts ...Option) dispatch.Converter {
	cfg := applyOptions(opts)

	return func(v any) (any, error) {
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.Indent = cfg.indent
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode TOML: %w", err)
		}

		return &dispatch.Encoded{ContentType: cfg.contentType, Body: buf.Bytes()}, nil
	}
}
