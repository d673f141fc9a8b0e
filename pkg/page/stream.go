package page

import (
	"context"
	"io"

	"github.com/ajitpratap0/nebula-blocks/pkg/compression"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

// StreamMagic opens every page stream.
const StreamMagic = "NBPG"

// StreamVersion is the only stream layout understood by this package.
const StreamVersion byte = 1

// StreamWriter writes a page stream:
// [magic "NBPG"][byte version][byte compression id][serialized pages...].
type StreamWriter struct {
	codec *Codec
	sink  *slice.Writer
	pages int
}

// NewStreamWriter writes the stream header to w.
func NewStreamWriter(w io.Writer, codec *Codec) (*StreamWriter, error) {
	sink := slice.NewWriter(w)
	if _, err := sink.Write([]byte(StreamMagic)); err != nil {
		return nil, err
	}
	if err := sink.WriteByte(StreamVersion); err != nil {
		return nil, err
	}
	if err := sink.WriteByte(codec.Algorithm().ID()); err != nil {
		return nil, err
	}
	return &StreamWriter{codec: codec, sink: sink}, nil
}

// Write serializes and appends p.
func (sw *StreamWriter) Write(ctx context.Context, p *Page) error {
	sp, err := sw.codec.Serialize(ctx, p)
	if err != nil {
		return err
	}
	return sw.WriteSerialized(sp)
}

// WriteSerialized appends an already serialized page.
func (sw *StreamWriter) WriteSerialized(sp *SerializedPage) error {
	if err := sp.WriteTo(sw.sink); err != nil {
		return err
	}
	sw.pages++
	return nil
}

// Pages returns the number of pages written.
func (sw *StreamWriter) Pages() int { return sw.pages }

// Flush writes buffered bytes through to the underlying writer.
func (sw *StreamWriter) Flush() error { return sw.sink.Flush() }

// WriteStream writes pages to w as one stream and flushes it.
func WriteStream(ctx context.Context, w io.Writer, codec *Codec, pages ...*Page) error {
	sw, err := NewStreamWriter(w, codec)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := sw.Write(ctx, p); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// StreamReader reads pages written by a StreamWriter.
type StreamReader struct {
	codec *Codec
	src   *slice.Reader
}

// NewStreamReader reads and checks the stream header. When the stream was
// compressed with a different algorithm than codec uses, pages are
// decompressed with the stream's algorithm.
func NewStreamReader(r io.Reader, codec *Codec) (*StreamReader, error) {
	src := slice.NewReader(r)
	magic, err := src.ReadBytes(len(StreamMagic))
	if err != nil {
		return nil, err
	}
	if string(magic) != StreamMagic {
		return nil, errors.Corrupt("not a page stream: magic %q", magic)
	}
	version, err := src.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != StreamVersion {
		return nil, errors.Corrupt("unsupported page stream version %d", version)
	}
	id, err := src.ReadByte()
	if err != nil {
		return nil, err
	}
	alg, err := compression.AlgorithmFromID(id)
	if err != nil {
		return nil, err
	}
	if alg != codec.Algorithm() {
		comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg})
		if err != nil {
			return nil, err
		}
		codec = codec.withCompressor(comp)
	}
	return &StreamReader{codec: codec, src: src}, nil
}

// Algorithm returns the compression recorded in the stream header.
func (sr *StreamReader) Algorithm() compression.Algorithm { return sr.codec.Algorithm() }

// Offset returns the number of stream bytes consumed so far.
func (sr *StreamReader) Offset() int64 { return sr.src.Offset() }

// NextSerialized returns the next page without decoding it, or io.EOF at the
// end of the stream.
func (sr *StreamReader) NextSerialized() (*SerializedPage, error) {
	if sr.src.AtEOF() {
		return nil, io.EOF
	}
	return readSerializedPage(sr.src, sr.codec.maxPageSize)
}

// Next decodes the next page, or returns io.EOF at the end of the stream.
func (sr *StreamReader) Next(ctx context.Context) (*Page, error) {
	sp, err := sr.NextSerialized()
	if err != nil {
		return nil, err
	}
	return sr.codec.Deserialize(ctx, sp)
}

// Deserialize decodes sp with the stream's codec.
func (sr *StreamReader) Deserialize(ctx context.Context, sp *SerializedPage) (*Page, error) {
	return sr.codec.Deserialize(ctx, sp)
}

// ReadStream decodes every page of a stream.
func ReadStream(ctx context.Context, r io.Reader, codec *Codec) ([]*Page, error) {
	sr, err := NewStreamReader(r, codec)
	if err != nil {
		return nil, err
	}
	var pages []*Page
	for {
		p, err := sr.Next(ctx)
		if err == io.EOF {
			return pages, nil
		}
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
}
