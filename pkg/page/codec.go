package page

import (
	"context"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/compression"
	"github.com/ajitpratap0/nebula-blocks/pkg/config"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/logger"
	"github.com/ajitpratap0/nebula-blocks/pkg/metrics"
	"github.com/ajitpratap0/nebula-blocks/pkg/observability"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

// minEnvelopeSize is the smallest possible block envelope: a tag length and
// a one-byte tag.
const minEnvelopeSize = 5

// Codec turns pages into SerializedPages and back. It is immutable and safe
// for concurrent use.
type Codec struct {
	serde       *block.Serde
	compressor  compression.Compressor
	threshold   int
	checksum    bool
	maxPageSize int
	metrics     *metrics.PageMetrics
	logger      *zap.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithCompressor compresses page bodies with c.
func WithCompressor(c compression.Compressor) Option {
	return func(pc *Codec) { pc.compressor = c }
}

// WithCompressionThreshold leaves bodies smaller than n bytes uncompressed.
func WithCompressionThreshold(n int) Option {
	return func(pc *Codec) { pc.threshold = n }
}

// WithChecksum toggles the XXH64 body checksum.
func WithChecksum(enabled bool) Option {
	return func(pc *Codec) { pc.checksum = enabled }
}

// WithMaxPageSize bounds the uncompressed body size in both directions.
func WithMaxPageSize(n int) Option {
	return func(pc *Codec) { pc.maxPageSize = n }
}

// WithMetrics records page traffic in m. A nil m disables metrics.
func WithMetrics(m *metrics.PageMetrics) Option {
	return func(pc *Codec) { pc.metrics = m }
}

// WithLogger sets the logger used for per-page debug output.
func WithLogger(l *zap.Logger) Option {
	return func(pc *Codec) { pc.logger = l }
}

// NewCodec returns a codec over serde. Without options pages are
// checksummed but not compressed.
func NewCodec(serde *block.Serde, opts ...Option) (*Codec, error) {
	if serde == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "page codec requires a serde")
	}
	c := &Codec{
		serde:       serde,
		checksum:    true,
		maxPageSize: config.Default().Page.MaxPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.compressor == nil {
		none, err := compression.NewCompressor(&compression.Config{Algorithm: compression.None})
		if err != nil {
			return nil, err
		}
		c.compressor = none
	}
	if c.logger == nil {
		c.logger = logger.Get()
	}
	if c.threshold < 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "negative compression threshold %d", c.threshold)
	}
	if c.maxPageSize <= 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "max page size must be positive, got %d", c.maxPageSize)
	}
	return c, nil
}

// NewCodecFromConfig builds the serde and codec described by cfg. opts are
// applied after the configured values.
func NewCodecFromConfig(cfg *config.Config, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	serde, err := block.NewSerde(
		block.WithMaxDepth(cfg.Serde.MaxDepth),
		block.WithMaxPositions(cfg.Serde.MaxPositions),
	)
	if err != nil {
		return nil, err
	}
	cc, err := cfg.Page.CompressionConfig()
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(cc)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithCompressor(comp),
		WithCompressionThreshold(cfg.Page.CompressionThreshold),
		WithChecksum(cfg.Page.Checksum),
		WithMaxPageSize(cfg.Page.MaxPageSize),
	}
	if cfg.Observability.EnableMetrics {
		base = append(base, WithMetrics(metrics.Default()))
	}
	return NewCodec(serde, append(base, opts...)...)
}

// Serde returns the block registry used for channels.
func (c *Codec) Serde() *block.Serde { return c.serde }

// Algorithm returns the compression algorithm applied to large bodies.
func (c *Codec) Algorithm() compression.Algorithm { return c.compressor.Algorithm() }

// withCompressor returns a copy of c that compresses with comp.
func (c *Codec) withCompressor(comp compression.Compressor) *Codec {
	clone := *c
	clone.compressor = comp
	return &clone
}

// Serialize encodes every channel of p into one body, then checksums and
// compresses it as configured.
func (c *Codec) Serialize(ctx context.Context, p *Page) (sp *SerializedPage, err error) {
	timer := metrics.NewTimer(string(metrics.DirectionSerialize))
	ctx, span := observability.StartSpan(ctx, "page.serialize")
	span.SetAttribute("positions", p.PositionCount())
	span.SetAttribute("channels", p.ChannelCount())
	defer func() {
		if err != nil {
			c.metrics.ObserveFailure(metrics.DirectionSerialize, errorType(err))
		}
		span.End(err)
	}()

	out := slice.NewOutput(int(p.SizeInBytes()) + 64)
	defer out.Release()

	if err := out.WriteInt32(int32(p.ChannelCount())); err != nil {
		return nil, err
	}
	for _, b := range p.blocks {
		if err := c.serde.WriteBlock(out, b); err != nil {
			return nil, err
		}
		c.metrics.ObserveBlock(metrics.DirectionSerialize, b.EncodingName())
	}

	body := out.Bytes()
	if len(body) > c.maxPageSize {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"page body of %d bytes exceeds limit %d", len(body), c.maxPageSize)
	}

	sp = &SerializedPage{
		PositionCount:    p.PositionCount(),
		UncompressedSize: len(body),
	}
	if c.checksum {
		sp.Markers |= Checksummed
		sp.Checksum = xxhash.Sum64(body)
	}

	applied := compression.None
	if c.compressor.Algorithm() != compression.None && len(body) >= c.threshold {
		compressed, err := c.compressor.Compress(body)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(body) {
			sp.Markers |= Compressed
			sp.Payload = compressed
			applied = c.compressor.Algorithm()
		}
	}
	if sp.Payload == nil {
		sp.Payload = out.Detach()
	}

	elapsed := timer.Stop()
	c.metrics.ObservePage(metrics.DirectionSerialize, string(applied),
		sp.PositionCount, sp.UncompressedSize, sp.SizeOnWire(), elapsed)
	span.SetAttribute("compression", string(applied))
	span.SetAttribute("uncompressed_bytes", sp.UncompressedSize)
	span.SetAttribute("wire_bytes", sp.SizeOnWire())
	logger.Annotate(ctx, c.logger).Debug("page serialized",
		zap.Int("positions", sp.PositionCount),
		zap.Int("channels", p.ChannelCount()),
		zap.String("compression", string(applied)),
		zap.Int("uncompressed_bytes", sp.UncompressedSize),
		zap.Int("wire_bytes", sp.SizeOnWire()),
		zap.Duration("elapsed", elapsed))
	return sp, nil
}

// Deserialize verifies, decompresses and decodes sp. Block decoding errors
// are returned with their original type.
func (c *Codec) Deserialize(ctx context.Context, sp *SerializedPage) (p *Page, err error) {
	timer := metrics.NewTimer(string(metrics.DirectionDeserialize))
	ctx, span := observability.StartSpan(ctx, "page.deserialize")
	span.SetAttribute("positions", sp.PositionCount)
	span.SetAttribute("wire_bytes", sp.SizeOnWire())
	defer func() {
		if err != nil {
			c.metrics.ObserveFailure(metrics.DirectionDeserialize, errorType(err))
		}
		span.End(err)
	}()
	log := logger.Annotate(ctx, c.logger)

	if sp.UncompressedSize > c.maxPageSize {
		return nil, errors.Corrupt("page body of %d bytes exceeds limit %d", sp.UncompressedSize, c.maxPageSize)
	}

	body := sp.Payload
	applied := compression.None
	if sp.Markers.Has(Compressed) {
		if c.compressor.Algorithm() == compression.None {
			return nil, errors.Corrupt("page is compressed but codec has no compression")
		}
		body, err = c.compressor.Decompress(sp.Payload, sp.UncompressedSize)
		if err != nil {
			log.Warn("page decompression failed",
				zap.String("compression", string(c.compressor.Algorithm())),
				zap.Int("wire_bytes", sp.SizeOnWire()),
				zap.Error(err))
			return nil, err
		}
		applied = c.compressor.Algorithm()
	}
	if len(body) != sp.UncompressedSize {
		return nil, errors.Corrupt("page body is %d bytes, header says %d", len(body), sp.UncompressedSize)
	}

	if sp.Markers.Has(Checksummed) {
		if sum := xxhash.Sum64(body); sum != sp.Checksum {
			log.Warn("page checksum mismatch",
				zap.Uint64("expected", sp.Checksum),
				zap.Uint64("actual", sum),
				zap.Int("positions", sp.PositionCount))
			return nil, errors.Corrupt("page checksum mismatch").
				WithDetail("expected", sp.Checksum).
				WithDetail("actual", sum)
		}
	}

	in := slice.NewInput(body)
	channels, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	if channels < 0 || int(channels) > in.Remaining()/minEnvelopeSize {
		return nil, errors.Corrupt("invalid channel count %d for %d body bytes", channels, len(body))
	}
	blocks := make([]block.Block, channels)
	for i := range blocks {
		if blocks[i], err = c.serde.ReadBlock(in); err != nil {
			return nil, err
		}
		c.metrics.ObserveBlock(metrics.DirectionDeserialize, blocks[i].EncodingName())
	}
	if in.Remaining() != 0 {
		return nil, errors.Corrupt("%d trailing bytes after page channels", in.Remaining())
	}

	p, err = NewPageWithPositionCount(sp.PositionCount, blocks...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCorruptData, "invalid page")
	}

	elapsed := timer.Stop()
	c.metrics.ObservePage(metrics.DirectionDeserialize, string(applied),
		sp.PositionCount, sp.UncompressedSize, sp.SizeOnWire(), elapsed)
	log.Debug("page deserialized",
		zap.Int("positions", sp.PositionCount),
		zap.Int("channels", len(blocks)),
		zap.String("compression", string(applied)),
		zap.Duration("elapsed", elapsed))
	return p, nil
}

// errorType is the metrics label for err.
func errorType(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return string(e.Type)
	}
	return string(errors.ErrorTypeInternal)
}
