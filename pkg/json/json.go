// Package json wraps goccy/go-json with pooled buffers and a streaming
// encoder used to dump decoded pages.
package json

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/pool"
)

// Don't pool very large buffers.
const maxPooledBuffer = 1 << 20

var buffers = pool.New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
	func(b *bytes.Buffer) { b.Reset() },
)

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	return buffers.Get()
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	buffers.Put(buf)
}

// Marshal is a drop-in replacement for encoding/json.Marshal.
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal.
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalToWriter encodes v followed by a newline straight into w, staging
// the bytes in a pooled buffer.
func MarshalToWriter(w io.Writer, v interface{}) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode json")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write json")
	}
	return nil
}

// StreamingEncoder writes a sequence of values either as a JSON array or as
// newline-delimited JSON.
type StreamingEncoder struct {
	writer  io.Writer
	encoder *gojson.Encoder
	first   bool
	isArray bool
	pretty  bool
	err     error
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	se := &StreamingEncoder{
		writer:  w,
		encoder: enc,
		first:   true,
		isArray: isArray,
	}
	if isArray {
		se.write("[")
	}
	return se
}

// SetPretty enables indentation
func (se *StreamingEncoder) SetPretty(indent string) {
	se.pretty = true
	se.encoder.SetIndent("", indent)
}

func (se *StreamingEncoder) write(s string) {
	if se.err != nil {
		return
	}
	if _, err := io.WriteString(se.writer, s); err != nil {
		se.err = errors.Wrap(err, errors.ErrorTypeInternal, "failed to write json")
	}
}

// Encode writes a single value. The first failure sticks.
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray && !se.first {
		se.write(",")
	}
	se.first = false
	if se.err != nil {
		return se.err
	}
	if err := se.encoder.Encode(v); err != nil {
		se.err = errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode json")
	}
	return se.err
}

// Close terminates the array, if any.
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		se.write("]\n")
	}
	return se.err
}
