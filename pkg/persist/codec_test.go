package persist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState is a struct for round-trip codec testing.
type testState struct {
	Name   string         `json:"name"`
	Count  int            `json:"count"`
	Values map[string]int `json:"values"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	original := testState{Name: "test", Count: 42, Values: map[string]int{"a": 1, "b": 2}}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original, decoded)
}

func TestGobCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewGobCodec()

	original := testState{Name: "gob", Count: 7, Values: map[string]int{"x": 9}}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))

	assert.Equal(t, original, decoded)
}

func TestCodecByID(t *testing.T) {
	t.Parallel()

	jsonCodec, err := codecByID(NewJSONCodec().ID())
	require.NoError(t, err)
	assert.IsType(t, &JSONCodec{}, jsonCodec)

	gobCodec, err := codecByID(NewGobCodec().ID())
	require.NoError(t, err)
	assert.IsType(t, &GobCodec{}, gobCodec)

	_, err = codecByID(0xEE)
	require.ErrorIs(t, err, ErrUnknownCodec)
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Compression
	}{
		{"", CompressionLZ4},
		{"lz4", CompressionLZ4},
		{"LZ4", CompressionLZ4},
		{" zstd ", CompressionZstd},
		{"none", CompressionNone},
	}

	for _, tt := range tests {
		got, err := ParseCompression(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseCompression("brotli")
	require.ErrorIs(t, err, ErrUnknownCompression)
}
