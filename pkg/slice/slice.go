// Package slice defines the byte sink and source contract consumed by block
// codecs, with an in-memory implementation (Output, Input) and a buffered
// stream implementation (Writer, Reader).
//
// All multi-byte integers are little-endian.
package slice

import (
	"encoding/binary"
)

// Sink is a sequential, append-only byte writer.
type Sink interface {
	WriteByte(b byte) error
	WriteInt32(v int32) error
	Write(p []byte) (int, error)
}

// Source is a sequential, cursor-based byte reader. Reading past the end
// fails with a truncated_input error.
type Source interface {
	ReadByte() (byte, error)
	ReadInt32() (int32, error)
	// ReadBytes returns the next n bytes in a freshly allocated slice.
	ReadBytes(n int) ([]byte, error)
}

// Sized is implemented by sources that know how many bytes are left.
// Decoders use it to reject impossible lengths before allocating.
type Sized interface {
	Remaining() int
}

// WriteInt64 appends v to s as eight little-endian bytes.
func WriteInt64(s Sink, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := s.Write(b[:])
	return err
}

// ReadInt64 reads eight little-endian bytes from src.
func ReadInt64(src Source) (int64, error) {
	b, err := src.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// WriteString appends a length-prefixed string.
func WriteString(s Sink, v string) error {
	if err := s.WriteInt32(int32(len(v))); err != nil {
		return err
	}
	_, err := s.Write([]byte(v))
	return err
}
