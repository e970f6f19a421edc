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

package msgpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"rivaas.dev/dispatch"
)

func TestDecoder_Map(t *testing.T) {
	t.Parallel()

	body, err := msgpack.Marshal(map[string]any{
		"name":  "bob",
		"count": 3,
		"deep":  map[string]any{"ok": true},
	})
	require.NoError(t, err)

	m, err := Decoder().Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "bob", m["name"])
	assert.EqualValues(t, 3, m["count"])

	deep, ok := m["deep"].(map[string]any)
	require.True(t, ok, "deep: %T", m["deep"])
	assert.Equal(t, true, deep["ok"])
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Decoder().Decode([]byte{0xc1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MessagePack body")
}

func TestDecoder_ContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/msgpack", Decoder().ContentType())
	assert.Equal(t, "application/x-msgpack",
		Decoder(WithContentType("application/x-msgpack")).ContentType())
}

func TestFormat_RoundTrip(t *testing.T) {
	t.Parallel()

	out, err := Format()(map[string]any{"n": 3, "s": "hi"})
	require.NoError(t, err)

	enc, ok := out.(*dispatch.Encoded)
	require.True(t, ok)
	assert.Equal(t, ContentType, enc.ContentType)

	var back map[string]any
	require.NoError(t, msgpack.Unmarshal(enc.Body, &back))
	assert.EqualValues(t, 3, back["n"])
	assert.Equal(t, "hi", back["s"])
}

func TestFormat_JSONTag(t *testing.T) {
	t.Parallel()

	type report struct {
		FirstName string `json:"first_name"`
	}
	v := report{FirstName: "ada"}

	out, err := Format(WithJSONTag())(v)
	require.NoError(t, err)
	var tagged map[string]any
	require.NoError(t, msgpack.Unmarshal(out.(*dispatch.Encoded).Body, &tagged))
	assert.Equal(t, "ada", tagged["first_name"])

	out, err = Format()(v)
	require.NoError(t, err)
	var plain map[string]any
	require.NoError(t, msgpack.Unmarshal(out.(*dispatch.Encoded).Body, &plain))
	assert.NotContains(t, plain, "first_name")
}
