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

// Package proto provides Protocol Buffers transport support for the dispatch
// package.
//
// This package extends rivaas.dev/dispatch with Protocol Buffers request
// decoding and response rendering, using google.golang.org/protobuf for
// serialization. Incoming messages are translated to argument maps through
// their canonical JSON mapping, so capability parameters see the same names
// a protojson client would send.
//
// Example:
//
//	// message AddRequest {
//	//     double a = 1;
//	//     double b = 2;
//	// }
//
//	app := rest.New(rest.WithDecoder(
//	    proto.Decoder(func() proto.Message { return new(pb.AddRequest) }),
//	))
package proto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/rest"
)

// ContentType is the media type accepted and produced by this package.
const ContentType = "application/x-protobuf"

// Message is an alias for proto.Message to simplify imports.
type Message = proto.Message

// Option configures Protocol Buffers transport behavior.
type Option func(*config)

// config holds Proto-specific transport configuration.
type config struct {
	contentType    string
	allowPartial   bool
	discardUnknown bool
	protoNames     bool
	deterministic  bool
}

// WithContentType overrides the media type the decoder registers under and
// the type stamped on rendered output. Useful for clients that send
// application/protobuf.
func WithContentType(ct string) Option {
	return func(c *config) {
		c.contentType = ct
	}
}

// WithAllowPartial allows messages with missing required fields to
// unmarshal without returning an error.
func WithAllowPartial() Option {
	return func(c *config) {
		c.allowPartial = true
	}
}

// WithDiscardUnknown specifies whether to ignore unknown fields when
// unmarshaling.
func WithDiscardUnknown() Option {
	return func(c *config) {
		c.discardUnknown = true
	}
}

// WithProtoNames makes decoded argument names use the proto field names
// (usually snake_case) instead of the lowerCamelCase JSON names.
func WithProtoNames() Option {
	return func(c *config) {
		c.protoNames = true
	}
}

// WithDeterministic makes rendered output use deterministic map ordering.
func WithDeterministic() Option {
	return func(c *config) {
		c.deterministic = true
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{contentType: ContentType}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Decoder returns a body decoder for Protocol Buffers request payloads.
// newMsg allocates the message type requests are expected to carry; every
// request decodes into a fresh instance.
//
//	app := rest.New(rest.WithDecoder(
//	    proto.Decoder(func() proto.Message { return new(pb.AddRequest) }),
//	))
func Decoder(newMsg func() Message, opts ...Option) rest.Decoder {
	return &decoder{newMsg: newMsg, cfg: applyOptions(opts)}
}

type decoder struct {
	newMsg func() Message
	cfg    *config
}

func (d *decoder) ContentType() string { return d.cfg.contentType }

func (d *decoder) Decode(data []byte) (map[string]any, error) {
	msg := d.newMsg()
	unmarshal := proto.UnmarshalOptions{
		AllowPartial:   d.cfg.allowPartial,
		DiscardUnknown: d.cfg.discardUnknown,
	}
	if err := unmarshal.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("invalid protobuf body: %w", err)
	}

	return toArgs(msg, d.cfg)
}

// toArgs converts a decoded message to an argument map via its canonical
// JSON form. Numbers stay json.Number so 64-bit values keep precision.
func toArgs(msg Message, cfg *config) (map[string]any, error) {
	jm := protojson.MarshalOptions{
		UseProtoNames: cfg.protoNames,
		AllowPartial:  cfg.allowPartial,
	}
	b, err := jm.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("translate protobuf body: %w", err)
	}

	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("translate protobuf body: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

// Format returns an output converter that renders results in the Protocol
// Buffers wire format. The capability must return a proto.Message; anything
// else fails the conversion.
//
//	w, err := dispatch.New(svc, dispatch.WithFormat("proto", proto.Format()))
func Format(opts ...Option) dispatch.Converter {
	cfg := applyOptions(opts)

	return func(v any) (any, error) {
		msg, ok := v.(Message)
		if !ok {
			return nil, fmt.Errorf("protobuf output needs a proto.Message, got %T", v)
		}
		marshal := proto.MarshalOptions{
			AllowPartial:  cfg.allowPartial,
			Deterministic: cfg.deterministic,
		}
		b, err := marshal.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode protobuf: %w", err)
		}

		return &dispatch.Encoded{ContentType: cfg.contentType, Body: b}, nil
	}
}
