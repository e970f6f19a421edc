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

package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"rivaas.dev/dispatch"
)

func newStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	return msg
}

func TestDecoder_WireToArgs(t *testing.T) {
	t.Parallel()

	body, err := proto.Marshal(newStruct(t, map[string]any{
		"name":  "bob",
		"count": 3,
	}))
	require.NoError(t, err)

	d := Decoder(func() Message { return new(structpb.Struct) })
	m, err := d.Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "bob", m["name"])
	assert.Equal(t, json.Number("3"), m["count"])
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	d := Decoder(func() Message { return new(structpb.Struct) })
	_, err := d.Decode([]byte("not-protobuf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid protobuf body")
}

func TestDecoder_ContentType(t *testing.T) {
	t.Parallel()

	d := Decoder(func() Message { return new(structpb.Struct) })
	assert.Equal(t, "application/x-protobuf", d.ContentType())

	d = Decoder(func() Message { return new(structpb.Struct) },
		WithContentType("application/protobuf"))
	assert.Equal(t, "application/protobuf", d.ContentType())
}

func TestFormat_RoundTrip(t *testing.T) {
	t.Parallel()

	out, err := Format()(newStruct(t, map[string]any{"n": 3}))
	require.NoError(t, err)

	enc, ok := out.(*dispatch.Encoded)
	require.True(t, ok)
	assert.Equal(t, ContentType, enc.ContentType)

	back := new(structpb.Struct)
	require.NoError(t, proto.Unmarshal(enc.Body, back))
	assert.Equal(t, map[string]any{"n": 3.0}, back.AsMap())
}

func TestFormat_RejectsNonMessage(t *testing.T) {
	t.Parallel()

	_, err := Format()(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proto.Message")
}
