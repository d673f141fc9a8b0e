package block

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/logger"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

const (
	// DefaultMaxDepth bounds block nesting on read.
	DefaultMaxDepth = 64
	// DefaultMaxPositions bounds the position count of any decoded block.
	DefaultMaxPositions = 1 << 24

	maxTagLength = 256
)

// BlockWriter writes a complete block envelope. Codecs call it for child
// blocks.
type BlockWriter interface {
	WriteBlock(sink slice.Sink, b Block) error
}

// BlockReader reads a complete block envelope. Codecs call it for child
// blocks.
type BlockReader interface {
	ReadBlock(src slice.Source) (Block, error)
}

// Encoding serializes one kind of block. Implementations must be stateless
// and safe for concurrent use.
type Encoding interface {
	// Name returns the tag written in front of every payload.
	Name() string
	// WriteBlock writes the payload of b, which reports Name() as its
	// encoding name.
	WriteBlock(w BlockWriter, sink slice.Sink, b Block) error
	// ReadBlock reads a payload written by WriteBlock.
	ReadBlock(r BlockReader, src slice.Source) (Block, error)
}

// Serde is an immutable registry of encodings keyed by tag. It is safe for
// concurrent use once constructed.
type Serde struct {
	encodings    map[string]Encoding
	maxDepth     int
	maxPositions int
}

// Option configures a Serde at construction.
type Option func(*serdeOptions)

type serdeOptions struct {
	extra        []Encoding
	maxDepth     int
	maxPositions int
	logger       *zap.Logger
}

// WithEncoding registers an additional encoding.
func WithEncoding(enc Encoding) Option {
	return func(o *serdeOptions) { o.extra = append(o.extra, enc) }
}

// WithMaxDepth limits how deeply nested blocks may be on read.
func WithMaxDepth(depth int) Option {
	return func(o *serdeOptions) { o.maxDepth = depth }
}

// WithMaxPositions limits the position count of any block on read.
func WithMaxPositions(n int) Option {
	return func(o *serdeOptions) { o.maxPositions = n }
}

// WithLogger sets the logger used during construction.
func WithLogger(l *zap.Logger) Option {
	return func(o *serdeOptions) { o.logger = l }
}

// BuiltinEncodings returns the codecs for every block type in this package.
func BuiltinEncodings() []Encoding {
	return []Encoding{
		fixedEncoding[int8]{byteKind},
		fixedEncoding[int16]{shortKind},
		fixedEncoding[int32]{intKind},
		fixedEncoding[int64]{longKind},
		fixedEncoding[Int128]{int128Kind},
		variableWidthEncoding{},
		arrayEncoding{},
		mapEncoding{},
		rowEncoding{},
		dictionaryEncoding{},
		runLengthEncoding{},
	}
}

// NewSerde builds a registry holding the built-in encodings plus any given
// with WithEncoding. Registering a tag twice is an error.
func NewSerde(opts ...Option) (*Serde, error) {
	o := serdeOptions{
		maxDepth:     DefaultMaxDepth,
		maxPositions: DefaultMaxPositions,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxDepth <= 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "max depth must be positive, got %d", o.maxDepth)
	}
	if o.maxPositions <= 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "max positions must be positive, got %d", o.maxPositions)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}

	s := &Serde{
		encodings:    make(map[string]Encoding),
		maxDepth:     o.maxDepth,
		maxPositions: o.maxPositions,
	}
	for _, enc := range append(BuiltinEncodings(), o.extra...) {
		name := enc.Name()
		if name == "" || len(name) > maxTagLength {
			return nil, errors.Newf(errors.ErrorTypeConfig, "invalid encoding tag %q", name)
		}
		if _, exists := s.encodings[name]; exists {
			return nil, errors.Newf(errors.ErrorTypeConfig, "encoding %q registered twice", name).
				WithDetail("encoding", name)
		}
		s.encodings[name] = enc
	}
	o.logger.Debug("block serde ready",
		zap.Strings("encodings", s.Encodings()),
		zap.Int("max_depth", s.maxDepth),
		zap.Int("max_positions", s.maxPositions))
	return s, nil
}

// Encodings returns the registered tags in sorted order.
func (s *Serde) Encodings() []string {
	names := make([]string, 0, len(s.encodings))
	for name := range s.encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the encoding registered for tag.
func (s *Serde) Lookup(tag string) (Encoding, bool) {
	enc, ok := s.encodings[tag]
	return enc, ok
}

// WriteBlock writes b as [int32 tagLength][tag][payload].
func (s *Serde) WriteBlock(sink slice.Sink, b Block) error {
	tag := b.EncodingName()
	enc, ok := s.encodings[tag]
	if !ok {
		return errors.Newf(errors.ErrorTypeUnknownEncoding, "no codec registered for %q", tag).
			WithDetail("encoding", tag)
	}
	if err := slice.WriteString(sink, tag); err != nil {
		return err
	}
	return enc.WriteBlock(s, sink, b)
}

// ReadBlock reads one block envelope. Nothing is returned on failure.
func (s *Serde) ReadBlock(src slice.Source) (Block, error) {
	d := &decoder{serde: s}
	return d.ReadBlock(src)
}

// Encode writes b to a new byte slice.
func (s *Serde) Encode(b Block) ([]byte, error) {
	out := slice.NewOutput(int(b.SizeInBytes()) + 64)
	defer out.Release()
	if err := s.WriteBlock(out, b); err != nil {
		return nil, err
	}
	return out.Detach(), nil
}

// Decode reads exactly one block from data.
func (s *Serde) Decode(data []byte) (Block, error) {
	in := slice.NewInput(data)
	b, err := s.ReadBlock(in)
	if err != nil {
		return nil, err
	}
	if in.Remaining() != 0 {
		return nil, errors.Corrupt("%d trailing bytes after block", in.Remaining())
	}
	return b, nil
}

// decoder carries per-call read state so the Serde itself stays immutable.
type decoder struct {
	serde *Serde
	depth int
}

func (d *decoder) ReadBlock(src slice.Source) (Block, error) {
	if d.depth >= d.serde.maxDepth {
		return nil, errors.Corrupt("block nesting exceeds %d levels", d.serde.maxDepth)
	}
	n, err := src.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > maxTagLength {
		return nil, errors.Corrupt("invalid encoding tag length %d", n)
	}
	raw, err := src.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	tag := string(raw)
	enc, ok := d.serde.encodings[tag]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnknownEncoding, "no codec registered for %q", tag).
			WithDetail("encoding", tag)
	}
	d.depth++
	b, err := enc.ReadBlock(d, src)
	d.depth--
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ReadPositionCount reads an int32 position count and checks it against the
// reader's limits and, when known, the bytes left in src. bytesPerPosition is
// the minimum number of bytes each position occupies in the rest of the
// payload.
func ReadPositionCount(r BlockReader, src slice.Source, bytesPerPosition int) (int, error) {
	n, err := src.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Corrupt("negative position count %d", n)
	}
	if d, ok := r.(*decoder); ok && int(n) > d.serde.maxPositions {
		return 0, errors.Corrupt("position count %d exceeds limit %d", n, d.serde.maxPositions)
	}
	if sized, ok := src.(slice.Sized); ok && bytesPerPosition > 0 && int(n) > sized.Remaining()/bytesPerPosition {
		return 0, errors.Newf(errors.ErrorTypeTruncatedInput,
			"position count %d needs at least %d bytes, %d remaining",
			n, int(n)*bytesPerPosition, sized.Remaining())
	}
	return int(n), nil
}

// asCorrupt reports a constructor validation failure on decoded data.
func asCorrupt(err error, tag string) error {
	return errors.Wrap(err, errors.ErrorTypeCorruptData, "invalid "+tag+" block").
		WithDetail("encoding", tag)
}
