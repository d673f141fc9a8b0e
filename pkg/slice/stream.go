package slice

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Writer is a Sink over an io.Writer. Call Flush when done.
type Writer struct {
	w       *bufio.Writer
	scratch [4]byte
}

// NewWriter wraps w in a buffered Sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) error {
	if err := w.w.WriteByte(b); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "writing byte")
	}
	return nil
}

// WriteInt32 appends v as four little-endian bytes.
func (w *Writer) WriteInt32(v int32) error {
	binary.LittleEndian.PutUint32(w.scratch[:], uint32(v))
	if _, err := w.w.Write(w.scratch[:]); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "writing int32")
	}
	return nil
}

// Write appends p.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeInternal, "writing bytes")
	}
	return n, nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "flushing sink")
	}
	return nil
}

// Reader is a Source over an io.Reader.
type Reader struct {
	r       *bufio.Reader
	scratch [4]byte
	read    int64
}

// NewReader wraps r in a buffered Source.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (r *Reader) wrap(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(err, errors.ErrorTypeTruncatedInput, what).WithDetail("offset", r.read)
	}
	return errors.Wrap(err, errors.ErrorTypeInternal, what)
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, r.wrap(err, "reading byte")
	}
	r.read++
	return b, nil
}

// ReadInt32 reads four little-endian bytes.
func (r *Reader) ReadInt32() (int32, error) {
	if _, err := io.ReadFull(r.r, r.scratch[:]); err != nil {
		return 0, r.wrap(err, "reading int32")
	}
	r.read += 4
	return int32(binary.LittleEndian.Uint32(r.scratch[:])), nil
}

// readChunk bounds the up-front allocation of ReadBytes. Longer reads grow
// with the bytes that actually arrive.
const readChunk = 64 * 1024

// ReadBytes reads exactly n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Newf(errors.ErrorTypeCorruptData, "negative read length %d", n)
	}
	if n <= readChunk {
		out := make([]byte, n)
		if _, err := io.ReadFull(r.r, out); err != nil {
			return nil, r.wrap(err, "reading bytes")
		}
		r.read += int64(n)
		return out, nil
	}
	var buf bytes.Buffer
	buf.Grow(readChunk)
	copied, err := io.CopyN(&buf, r.r, int64(n))
	r.read += copied
	if err != nil {
		return nil, r.wrap(err, "reading bytes")
	}
	return buf.Bytes(), nil
}

// AtEOF reports whether the underlying reader is exhausted.
func (r *Reader) AtEOF() bool {
	_, err := r.r.Peek(1)
	return err == io.EOF
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 { return r.read }
