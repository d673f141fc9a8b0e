// Package compression compresses serialized page bodies.
//
// Each algorithm is exposed through the Compressor interface. Decompression
// takes the expected uncompressed size, recorded in the page header, and
// refuses to produce more than that, so a corrupt or hostile payload cannot
// inflate without bound.
//
// # Algorithm Selection
//
//   - Snappy/S2: fast, moderate ratio
//   - LZ4: fastest, decent ratio
//   - Zstd: best ratio, good speed
//   - Gzip/Deflate: wide compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	compressed, err := comp.Compress(body)
//	body, err = comp.Decompress(compressed, len(body))
package compression

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/pool"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy block compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 block compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// algorithmIDs are the stable one-byte identifiers written into page stream
// headers. Never renumber.
var algorithmIDs = map[Algorithm]byte{
	None:    0,
	Gzip:    1,
	Snappy:  2,
	LZ4:     3,
	Zstd:    4,
	S2:      5,
	Deflate: 6,
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if a == "" {
		return None, nil
	}
	if _, ok := algorithmIDs[a]; !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", name)
	}
	return a, nil
}

// ID returns the wire identifier of a.
func (a Algorithm) ID() byte { return algorithmIDs[a] }

// AlgorithmFromID is the inverse of Algorithm.ID.
func AlgorithmFromID(id byte) (Algorithm, error) {
	for a, v := range algorithmIDs {
		if v == id {
			return a, nil
		}
	}
	return "", errors.Corrupt("unknown compression algorithm id %d", id)
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// Compressor compresses and decompresses whole buffers.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress returns the compressed form of data. data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress returns the original bytes of data, which must not exceed
	// maxSize. Exceeding it is reported as corrupt_data.
	Decompress(data []byte, maxSize int) ([]byte, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm"`
	Level     Level     `yaml:"level"`
}

// DefaultConfig returns LZ4 at the default level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: LZ4,
		Level:     Default,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	level := config.Level
	if level == 0 {
		level = Default
	}
	base := baseCompressor{algorithm: config.Algorithm, level: level}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{base}, nil
	case Gzip:
		return newGzipCompressor(base)
	case Snappy:
		return &snappyCompressor{base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{base}, nil
	case Deflate:
		return &deflateCompressor{baseCompressor: base, flateLevel: mapDeflateLevel(level)}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", config.Algorithm)
	}
}

// buffers backs the stream-based compressors.
var buffers = pool.New(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

func detach(b *bytes.Buffer) []byte {
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	return out
}

func compressFailed(err error, a Algorithm) error {
	return errors.Wrap(err, errors.ErrorTypeInternal, "compression failed").
		WithDetail("algorithm", string(a))
}

func decompressFailed(err error, a Algorithm) error {
	return errors.Wrap(err, errors.ErrorTypeCorruptData, "decompression failed").
		WithDetail("algorithm", string(a))
}

func tooLarge(a Algorithm, maxSize int) error {
	return errors.Corrupt("decompressed data exceeds %d bytes", maxSize).
		WithDetail("algorithm", string(a))
}

// readLimited drains r, failing once more than maxSize bytes come out.
func readLimited(r io.Reader, maxSize int, a Algorithm) ([]byte, error) {
	out := make([]byte, 0, maxSize)
	buf := bytes.NewBuffer(out)
	n, err := io.Copy(buf, io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, decompressFailed(err, a)
	}
	if n > int64(maxSize) {
		return nil, tooLarge(a, maxSize)
	}
	return buf.Bytes(), nil
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	if len(data) > maxSize {
		return nil, tooLarge(None, maxSize)
	}
	return data, nil
}

type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) (*gzipCompressor, error) {
	level := mapGzipLevel(base.level)
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
	}
	gc := &gzipCompressor{baseCompressor: base}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc, nil
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, compressFailed(err, Gzip)
	}
	if err := w.Close(); err != nil {
		return nil, compressFailed(err, Gzip)
	}
	return detach(buf), nil
}

func (gc *gzipCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, decompressFailed(err, Gzip)
	}
	return readLimited(r, maxSize, Gzip)
}

type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, decompressFailed(err, Snappy)
	}
	if n > maxSize {
		return nil, tooLarge(Snappy, maxSize)
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, decompressFailed(err, Snappy)
	}
	return out, nil
}

type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, compressFailed(err, LZ4)
	}
	if _, err := w.Write(data); err != nil {
		return nil, compressFailed(err, LZ4)
	}
	if err := w.Close(); err != nil {
		return nil, compressFailed(err, LZ4)
	}
	return detach(buf), nil
}

func (lc *lz4Compressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	return readLimited(lz4.NewReader(bytes.NewReader(data)), maxSize, LZ4)
}

type zstdCompressor struct {
	baseCompressor
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	level := mapZstdLevel(base.level)
	zc := &zstdCompressor{baseCompressor: base}
	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}
	return zc, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, decompressFailed(err, Zstd)
	}
	return readLimited(dec, maxSize, Zstd)
}

type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, decompressFailed(err, S2)
	}
	if n > maxSize {
		return nil, tooLarge(S2, maxSize)
	}
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, decompressFailed(err, S2)
	}
	return out, nil
}

type deflateCompressor struct {
	baseCompressor
	flateLevel int
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	w, err := flate.NewWriter(buf, dc.flateLevel)
	if err != nil {
		return nil, compressFailed(err, Deflate)
	}
	if _, err := w.Write(data); err != nil {
		return nil, compressFailed(err, Deflate)
	}
	if err := w.Close(); err != nil {
		return nil, compressFailed(err, Deflate)
	}
	return detach(buf), nil
}

func (dc *deflateCompressor) Decompress(data []byte, maxSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return readLimited(r, maxSize, Deflate)
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
