package page

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/compression"
	"github.com/ajitpratap0/nebula-blocks/pkg/config"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/metrics"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
	"github.com/ajitpratap0/nebula-blocks/pkg/testutil"
)

func newSerde(t *testing.T) *block.Serde {
	t.Helper()
	serde, err := block.NewSerde()
	require.NoError(t, err)
	return serde
}

func newCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec(newSerde(t), append([]Option{WithLogger(testutil.Logger(t))}, opts...)...)
	require.NoError(t, err)
	return c
}

func compressorFor(t *testing.T, a compression.Algorithm) compression.Compressor {
	t.Helper()
	c, err := compression.NewCompressor(&compression.Config{Algorithm: a})
	require.NoError(t, err)
	return c
}

// widePage builds a page large and repetitive enough to compress.
func widePage(t *testing.T, rows int) *Page {
	t.Helper()
	ids := make([]int64, rows)
	names := make([]string, rows)
	offsets := make([]int32, rows+1)
	var elements []int64
	for i := 0; i < rows; i++ {
		ids[i] = int64(i)
		names[i] = "customer"
		elements = append(elements, int64(i%7), int64(i%3))
		offsets[i+1] = int32(len(elements))
	}
	arrays := block.Must(block.NewArrayBlock(offsets, nil, longs(elements...)))
	dict := block.Must(block.NewDictionaryBlock(make([]int32, rows), block.NewVariableWidthBlockFromStrings("x", "y")))
	rle := block.Must(block.NewRunLengthBlock(longs(42), rows))
	p, err := NewPage(block.Must(block.NewLongBlock(ids, nil)), block.NewVariableWidthBlockFromStrings(names...), arrays, dict, rle)
	require.NoError(t, err)
	return p
}

func assertSamePage(t *testing.T, want, got *Page) {
	t.Helper()
	require.Equal(t, want.PositionCount(), got.PositionCount())
	require.Equal(t, want.ChannelCount(), got.ChannelCount())
	for i := 0; i < want.ChannelCount(); i++ {
		assert.True(t, block.Equal(want.Channel(i), got.Channel(i)), "channel %d", i)
	}
}

func TestCodecRoundTripPerAlgorithm(t *testing.T) {
	ctx := testutil.Context(t)
	p := widePage(t, 2000)

	for _, alg := range compression.Algorithms() {
		t.Run(string(alg), func(t *testing.T) {
			c := newCodec(t, WithCompressor(compressorFor(t, alg)), WithCompressionThreshold(0))

			sp, err := c.Serialize(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, 2000, sp.PositionCount)
			assert.True(t, sp.Markers.Has(Checksummed))
			if alg == compression.None {
				assert.False(t, sp.Markers.Has(Compressed))
				assert.Equal(t, sp.UncompressedSize, sp.SizeOnWire())
			} else {
				assert.True(t, sp.Markers.Has(Compressed))
				assert.Less(t, sp.SizeOnWire(), sp.UncompressedSize)
			}

			got, err := c.Deserialize(ctx, sp)
			require.NoError(t, err)
			assertSamePage(t, p, got)
		})
	}
}

func TestCodecSkipsCompressionBelowThreshold(t *testing.T) {
	c := newCodec(t, WithCompressor(compressorFor(t, compression.Zstd)), WithCompressionThreshold(1<<20))

	sp, err := c.Serialize(testutil.Context(t), widePage(t, 100))
	require.NoError(t, err)
	assert.False(t, sp.Markers.Has(Compressed))
	assert.Equal(t, sp.UncompressedSize, sp.SizeOnWire())
}

func TestCodecSkipsCompressionThatDoesNotShrink(t *testing.T) {
	c := newCodec(t, WithCompressor(compressorFor(t, compression.Gzip)), WithCompressionThreshold(0))

	p, err := NewPage(longs(1))
	require.NoError(t, err)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)
	assert.False(t, sp.Markers.Has(Compressed))

	got, err := c.Deserialize(testutil.Context(t), sp)
	require.NoError(t, err)
	assertSamePage(t, p, got)
}

func TestSerializedPageWireFormat(t *testing.T) {
	c := newCodec(t, WithChecksum(false))
	p, err := NewPage(longs(1, 2))
	require.NoError(t, err)

	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)

	out := slice.NewOutput(0)
	defer out.Release()
	require.NoError(t, sp.WriteTo(out))

	want := []byte{
		2, 0, 0, 0, // positions
		0,           // markers
		39, 0, 0, 0, // uncompressed size
		39, 0, 0, 0, // size on wire
		1, 0, 0, 0, // channels
		10, 0, 0, 0, 'L', 'O', 'N', 'G', '_', 'A', 'R', 'R', 'A', 'Y',
		2, 0, 0, 0, // block positions
		0, // no nulls
		1, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0,
	}
	assert.Equal(t, want, out.Bytes())

	back, err := ReadSerializedPage(slice.NewInput(want))
	require.NoError(t, err)
	assert.Equal(t, sp, back)
}

func TestSerializedPageChecksumOnWire(t *testing.T) {
	c := newCodec(t)
	p, err := NewPage(longs(5))
	require.NoError(t, err)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)

	out := slice.NewOutput(0)
	defer out.Release()
	require.NoError(t, sp.WriteTo(out))
	assert.Equal(t, 13+8+sp.SizeOnWire(), out.Len())

	back, err := ReadSerializedPage(slice.NewInput(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, sp.Checksum, back.Checksum)
}

func TestReadSerializedPageRejects(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		check func(error) bool
	}{
		{"negative positions", []byte{0xff, 0xff, 0xff, 0xff}, errors.IsCorrupt},
		{"unknown marker", []byte{1, 0, 0, 0, 0x04}, errors.IsCorrupt},
		{"negative size", []byte{1, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, errors.IsCorrupt},
		{"short header", []byte{1, 0, 0}, errors.IsTruncated},
		{"short payload", []byte{1, 0, 0, 0, 0, 4, 0, 0, 0, 4, 0, 0, 0, 1}, errors.IsTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSerializedPage(slice.NewInput(tt.data))
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestDeserializeChecksumMismatch(t *testing.T) {
	c := newCodec(t)
	p, err := NewPage(longs(1, 2, 3))
	require.NoError(t, err)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)

	sp.Payload[len(sp.Payload)-1] ^= 0xff
	_, err = c.Deserialize(testutil.Context(t), sp)
	assert.True(t, errors.IsCorrupt(err))
}

func TestDeserializeWithoutChecksumDetectsNothing(t *testing.T) {
	c := newCodec(t, WithChecksum(false))
	p, err := NewPage(longs(1, 2, 3))
	require.NoError(t, err)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)

	sp.Payload[len(sp.Payload)-1] ^= 0x01
	got, err := c.Deserialize(testutil.Context(t), sp)
	require.NoError(t, err)
	assert.NotEqual(t, int64(3), block.GetLong(got.Channel(0), 2))
}

func TestDeserializeRejectsBadBodies(t *testing.T) {
	c := newCodec(t, WithChecksum(false), WithMaxPageSize(1024))
	ctx := testutil.Context(t)

	t.Run("size mismatch", func(t *testing.T) {
		_, err := c.Deserialize(ctx, &SerializedPage{UncompressedSize: 8, Payload: []byte{0, 0, 0, 0}})
		assert.True(t, errors.IsCorrupt(err))
	})
	t.Run("over limit", func(t *testing.T) {
		_, err := c.Deserialize(ctx, &SerializedPage{UncompressedSize: 2048, Payload: make([]byte, 2048)})
		assert.True(t, errors.IsCorrupt(err))
	})
	t.Run("compressed without codec", func(t *testing.T) {
		_, err := c.Deserialize(ctx, &SerializedPage{Markers: Compressed, UncompressedSize: 4, Payload: []byte{1}})
		assert.True(t, errors.IsCorrupt(err))
	})
	t.Run("impossible channel count", func(t *testing.T) {
		body := []byte{100, 0, 0, 0}
		_, err := c.Deserialize(ctx, &SerializedPage{UncompressedSize: 4, Payload: body})
		assert.True(t, errors.IsCorrupt(err))
	})
	t.Run("trailing bytes", func(t *testing.T) {
		body := []byte{0, 0, 0, 0, 9}
		_, err := c.Deserialize(ctx, &SerializedPage{UncompressedSize: 5, Payload: body})
		assert.True(t, errors.IsCorrupt(err))
	})
	t.Run("position count mismatch", func(t *testing.T) {
		p, err := NewPage(longs(1, 2))
		require.NoError(t, err)
		sp, err := c.Serialize(ctx, p)
		require.NoError(t, err)
		sp.PositionCount = 3
		_, err = c.Deserialize(ctx, sp)
		assert.True(t, errors.IsCorrupt(err))
	})
}

func TestDeserializeKeepsBlockErrorType(t *testing.T) {
	c := newCodec(t, WithChecksum(false))
	body := []byte{1, 0, 0, 0, 5, 0, 0, 0, 'B', 'O', 'G', 'U', 'S'}
	_, err := c.Deserialize(testutil.Context(t), &SerializedPage{
		PositionCount:    0,
		UncompressedSize: len(body),
		Payload:          body,
	})
	assert.True(t, errors.IsUnknownEncoding(err))
}

func TestDeserializeCorruptCompressedPayload(t *testing.T) {
	c := newCodec(t, WithCompressor(compressorFor(t, compression.Zstd)), WithCompressionThreshold(0), WithChecksum(false))
	sp, err := c.Serialize(testutil.Context(t), widePage(t, 500))
	require.NoError(t, err)
	require.True(t, sp.Markers.Has(Compressed))

	for i := range sp.Payload {
		sp.Payload[i] = 0xAB
	}
	_, err = c.Deserialize(testutil.Context(t), sp)
	assert.True(t, errors.IsCorrupt(err))
}

func TestZeroChannelPageRoundTrip(t *testing.T) {
	c := newCodec(t)
	p, err := NewPageWithPositionCount(12)
	require.NoError(t, err)

	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)
	got, err := c.Deserialize(testutil.Context(t), sp)
	require.NoError(t, err)
	assert.Equal(t, 12, got.PositionCount())
	assert.Equal(t, 0, got.ChannelCount())
}

func TestRegionRoundTrip(t *testing.T) {
	c := newCodec(t, WithCompressor(compressorFor(t, compression.LZ4)))
	p := widePage(t, 300)
	r, err := p.Region(100, 50)
	require.NoError(t, err)

	sp, err := c.Serialize(testutil.Context(t), r)
	require.NoError(t, err)
	got, err := c.Deserialize(testutil.Context(t), sp)
	require.NoError(t, err)
	assertSamePage(t, r, got)
	assert.Equal(t, int64(100), block.GetLong(got.Channel(0), 0))
}

func TestSerializeRejectsOversizedPage(t *testing.T) {
	c := newCodec(t, WithMaxPageSize(16))
	_, err := c.Serialize(testutil.Context(t), widePage(t, 10))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestNewCodecValidates(t *testing.T) {
	_, err := NewCodec(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewCodec(newSerde(t), WithCompressionThreshold(-1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewCodec(newSerde(t), WithMaxPageSize(0))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewCodecFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Page.Compression = "zstd"
	cfg.Page.CompressionThreshold = 0
	cfg.Observability.EnableMetrics = false

	c, err := NewCodecFromConfig(cfg, WithLogger(testutil.Logger(t)))
	require.NoError(t, err)
	assert.Equal(t, compression.Zstd, c.Algorithm())
	assert.NotNil(t, c.Serde())

	p := widePage(t, 200)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)
	assert.True(t, sp.Markers.Has(Compressed|Checksummed))

	cfg.Page.Compression = "brotli"
	_, err = NewCodecFromConfig(cfg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCodecMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newCodec(t, WithMetrics(metrics.NewPageMetrics(reg)))
	ctx := testutil.Context(t)

	p, err := NewPage(longs(1, 2), block.NewVariableWidthBlockFromStrings("a", "b"))
	require.NoError(t, err)
	sp, err := c.Serialize(ctx, p)
	require.NoError(t, err)
	_, err = c.Deserialize(ctx, sp)
	require.NoError(t, err)

	sp.Payload[len(sp.Payload)-1] ^= 0xff
	_, err = c.Deserialize(ctx, sp)
	require.Error(t, err)

	pages, err := promtestutil.GatherAndCount(reg, "nebula_blocks_pages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	channels, err := promtestutil.GatherAndCount(reg, "nebula_blocks_channels_total")
	require.NoError(t, err)
	assert.Equal(t, 4, channels)

	failures, err := promtestutil.GatherAndCount(reg, "nebula_blocks_page_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestCodecSpans(t *testing.T) {
	rec := testutil.RecordSpans(t)

	c := newCodec(t)
	p, err := NewPage(longs(1, 2, 3))
	require.NoError(t, err)
	sp, err := c.Serialize(testutil.Context(t), p)
	require.NoError(t, err)
	_, err = c.Deserialize(testutil.Context(t), sp)
	require.NoError(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "page.serialize", ended[0].Name())
	assert.Equal(t, "page.deserialize", ended[1].Name())
}

func TestCodecConcurrentUse(t *testing.T) {
	c := newCodec(t, WithCompressor(compressorFor(t, compression.S2)), WithCompressionThreshold(0))
	p := widePage(t, 400)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp, err := c.Serialize(testutil.Context(t), p)
			if err != nil {
				errs <- err
				return
			}
			got, err := c.Deserialize(testutil.Context(t), sp)
			if err != nil {
				errs <- err
				return
			}
			if !block.Equal(p.Channel(2), got.Channel(2)) {
				errs <- errors.New(errors.ErrorTypeInternal, "channel mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
