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

// Package yaml provides YAML transport support for the dispatch package.
//
// This package extends rivaas.dev/dispatch with YAML request decoding and
// YAML response rendering, using gopkg.in/yaml.v3 for parsing.
//
// Example:
//
//	app := rest.New(rest.WithDecoder(yaml.Decoder()))
//
//	w, err := dispatch.New(svc,
//	    dispatch.WithAllow("report"),
//	    dispatch.WithFormat("yaml", yaml.Format()),
//	)
package yaml

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/rest"
)

// ContentType is the media type accepted and produced by this package.
const ContentType = "application/yaml"

// Option configures YAML transport behavior.
type Option func(*config)

// config holds YAML-specific transport configuration.
type config struct {
	contentType string
	indent      int
}

// WithContentType overrides the media type the decoder registers under and
// the type stamped on rendered output. Useful for clients that send
// text/yaml or application/x-yaml.
func WithContentType(ct string) Option {
	return func(c *config) {
		c.contentType = ct
	}
}

// WithIndent sets the number of spaces used for nested mappings in rendered
// output. The default is 4, matching gopkg.in/yaml.v3.
func WithIndent(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.indent = n
		}
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		contentType: ContentType,
		indent:      4,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Decoder returns a body decoder for YAML request payloads.
//
// Register it with the REST adapter to accept YAML bodies alongside JSON:
//
//	app := rest.New(rest.WithDecoder(yaml.Decoder()))
func Decoder(opts ...Option) rest.Decoder {
	return &decoder{cfg: applyOptions(opts)}
}

type decoder struct {
	cfg *config
}

func (d *decoder) ContentType() string { return d.cfg.contentType }

func (d *decoder) Decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML body: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

// Format returns an output converter that renders results as YAML.
//
// Register it under a format name so clients can opt in per request,
// or install it as the Else rule of the output ruleset to make YAML
// the default rendering:
//
//	w, err := dispatch.New(svc, dispatch.WithFormat("yaml", yaml.Format()))
func Format(opts ...Option) dispatch.Converter {
	cfg := applyOptions(opts)

	return func(v any) (any, error) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(cfg.indent)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}

		return &dispatch.Encoded{ContentType: cfg.contentType, Body: buf.Bytes()}, nil
	}
}
