package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageSummary struct {
	Index     int      `json:"index"`
	Positions int      `json:"positions"`
	Encodings []string `json:"encodings"`
	Note      string   `json:"note,omitempty"`
}

func TestMarshalRoundTrip(t *testing.T) {
	in := pageSummary{Index: 1, Positions: 3, Encodings: []string{"LONG_ARRAY", "RLE"}, Note: "<a&b>"}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out pageSummary
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalToWriterDoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarshalToWriter(&buf, map[string]string{"v": "<a&b>"}))
	assert.Equal(t, "{\"v\":\"<a&b>\"}\n", buf.String())
}

func TestStreamingEncoderArray(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, true)
	require.NoError(t, se.Encode(pageSummary{Index: 0, Positions: 2}))
	require.NoError(t, se.Encode(pageSummary{Index: 1, Positions: 5}))
	require.NoError(t, se.Close())

	var out []pageSummary
	require.NoError(t, Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, 5, out[1].Positions)
}

func TestStreamingEncoderEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, true)
	require.NoError(t, se.Close())
	assert.Equal(t, "[]\n", buf.String())
}

func TestStreamingEncoderLines(t *testing.T) {
	var buf bytes.Buffer
	se := NewStreamingEncoder(&buf, false)
	require.NoError(t, se.Encode(1))
	require.NoError(t, se.Encode("two"))
	require.NoError(t, se.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"1", `"two"`}, lines)
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("scratch")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Equal(t, 0, again.Len())
	PutBuffer(again)
}
