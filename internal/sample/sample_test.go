package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
)

func TestChannelsCoverEveryEncoding(t *testing.T) {
	channels, err := New(7).Channels(50)
	require.NoError(t, err)
	require.Len(t, channels, len(ChannelNames))

	seen := map[string]bool{}
	for _, c := range channels {
		assert.Equal(t, 50, c.PositionCount())
		seen[c.EncodingName()] = true
	}
	for _, tag := range []string{
		block.ByteArrayEncoding, block.ShortArrayEncoding, block.IntArrayEncoding,
		block.LongArrayEncoding, block.Int128ArrayEncoding, block.VariableWidthEncoding,
		block.ArrayEncoding, block.MapEncoding, block.RowEncoding,
		block.DictionaryEncoding, block.RunLengthEncoding,
	} {
		assert.True(t, seen[tag], tag)
	}
}

func TestDeterministic(t *testing.T) {
	a, err := New(42).Channels(20)
	require.NoError(t, err)
	b, err := New(42).Channels(20)
	require.NoError(t, err)
	for i := range a {
		assert.True(t, block.Equal(a[i], b[i]), ChannelNames[i])
	}
}

func TestIDsContinue(t *testing.T) {
	g := New(1)
	first, err := g.Channels(3)
	require.NoError(t, err)
	second, err := g.Channels(3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), block.GetLong(first[0], 2))
	assert.Equal(t, int64(3), block.GetLong(second[0], 0))
}

func TestZeroNullRate(t *testing.T) {
	channels, err := New(3).WithNullRate(0).Channels(30)
	require.NoError(t, err)
	for i, c := range channels {
		assert.False(t, block.MayHaveNull(c), ChannelNames[i])
	}
}
