package slice

import (
	"encoding/binary"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/pool"
)

// Output is an in-memory Sink backed by a pooled, growable buffer.
// It is not safe for concurrent use.
type Output struct {
	buf []byte
}

// NewOutput returns an Output whose initial capacity is at least sizeHint.
func NewOutput(sizeHint int) *Output {
	return &Output{buf: pool.Buffers.Get(sizeHint)}
}

// WriteByte appends a single byte.
func (o *Output) WriteByte(b byte) error {
	o.buf = append(o.buf, b)
	return nil
}

// WriteInt32 appends v as four little-endian bytes.
func (o *Output) WriteInt32(v int32) error {
	o.buf = binary.LittleEndian.AppendUint32(o.buf, uint32(v))
	return nil
}

// Write appends p. It never fails.
func (o *Output) Write(p []byte) (int, error) {
	o.buf = append(o.buf, p...)
	return len(p), nil
}

// Len returns the number of bytes written so far.
func (o *Output) Len() int { return len(o.buf) }

// Bytes returns the written bytes. The slice aliases the internal buffer and
// is only valid until the next write or Release.
func (o *Output) Bytes() []byte { return o.buf }

// Detach returns a copy of the written bytes that outlives Release.
func (o *Output) Detach() []byte {
	out := make([]byte, len(o.buf))
	copy(out, o.buf)
	return out
}

// Reset discards written bytes, keeping the buffer.
func (o *Output) Reset() { o.buf = o.buf[:0] }

// Release returns the buffer to the shared pool. The Output must not be used
// afterwards.
func (o *Output) Release() {
	if o.buf != nil {
		pool.Buffers.Put(o.buf)
		o.buf = nil
	}
}

// Input is a Source over an in-memory byte slice.
type Input struct {
	data []byte
	pos  int
}

// NewInput returns an Input positioned at the start of data.
func NewInput(data []byte) *Input {
	return &Input{data: data}
}

func (in *Input) need(n int) error {
	if n < 0 {
		return errors.Newf(errors.ErrorTypeCorruptData, "negative read length %d", n)
	}
	if len(in.data)-in.pos < n {
		return errors.Newf(errors.ErrorTypeTruncatedInput,
			"need %d bytes at offset %d, %d remaining", n, in.pos, len(in.data)-in.pos).
			WithDetail("offset", in.pos)
	}
	return nil
}

// ReadByte reads a single byte.
func (in *Input) ReadByte() (byte, error) {
	if err := in.need(1); err != nil {
		return 0, err
	}
	b := in.data[in.pos]
	in.pos++
	return b, nil
}

// ReadInt32 reads four little-endian bytes.
func (in *Input) ReadInt32() (int32, error) {
	if err := in.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(in.data[in.pos:]))
	in.pos += 4
	return v, nil
}

// ReadBytes returns a copy of the next n bytes.
func (in *Input) ReadBytes(n int) ([]byte, error) {
	if err := in.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, in.data[in.pos:in.pos+n])
	in.pos += n
	return out, nil
}

// Remaining returns the number of unread bytes.
func (in *Input) Remaining() int { return len(in.data) - in.pos }

// Offset returns the cursor position.
func (in *Input) Offset() int { return in.pos }
