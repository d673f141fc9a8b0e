package arrowconv

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-blocks/internal/sample"
	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

func checked(t *testing.T) *memory.CheckedAllocator {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return mem
}

func longs(values ...int64) *block.LongBlock {
	return block.Must(block.NewLongBlock(values, nil))
}

func TestFixedWidth(t *testing.T) {
	mem := checked(t)
	b := block.Must(block.NewIntBlock([]int32{7, 0, -3}, []bool{false, true, false}))

	arr, err := ToArrow(mem, b)
	require.NoError(t, err)
	defer arr.Release()

	ints := arr.(*array.Int32)
	assert.Equal(t, 3, ints.Len())
	assert.Equal(t, int32(7), ints.Value(0))
	assert.True(t, ints.IsNull(1))
	assert.Equal(t, int32(-3), ints.Value(2))
}

func TestInt128(t *testing.T) {
	mem := checked(t)
	b := block.Must(block.NewInt128Block([]block.Int128{{1, 2}}, nil))

	arr, err := ToArrow(mem, b)
	require.NoError(t, err)
	defer arr.Release()

	assert.True(t, arrow.TypeEqual(Int128Type, arr.DataType()))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2},
		arr.(*array.FixedSizeBinary).Value(0))
}

func TestVariableWidthRegion(t *testing.T) {
	mem := checked(t)
	vw := block.NewVariableWidthBlockFromValues([][]byte{[]byte("a"), nil, []byte("ccc"), []byte("dd")})
	r, err := vw.Region(1, 3)
	require.NoError(t, err)

	arr, err := ToArrow(mem, r)
	require.NoError(t, err)
	defer arr.Release()

	bin := arr.(*array.Binary)
	require.Equal(t, 3, bin.Len())
	assert.True(t, bin.IsNull(0))
	assert.Equal(t, []byte("ccc"), bin.Value(1))
	assert.Equal(t, []byte("dd"), bin.Value(2))
}

func TestArrayOfRegion(t *testing.T) {
	mem := checked(t)
	a := block.Must(block.NewArrayBlock([]int32{0, 2, 2, 5}, []bool{false, true, false}, longs(1, 2, 3, 4, 5)))
	r, err := a.Region(1, 2)
	require.NoError(t, err)

	arr, err := ToArrow(mem, r)
	require.NoError(t, err)
	defer arr.Release()

	list := arr.(*array.List)
	require.Equal(t, 2, list.Len())
	assert.True(t, list.IsNull(0))
	start, end := list.ValueOffsets(1)
	assert.Equal(t, int64(3), end-start)
	values := list.ListValues().(*array.Int64)
	assert.Equal(t, int64(3), values.Value(int(start)))
	assert.Equal(t, int64(5), values.Value(int(end-1)))
}

func TestMap(t *testing.T) {
	mem := checked(t)
	m := block.Must(block.NewMapBlock([]int32{0, 2, 3}, nil,
		block.NewVariableWidthBlockFromStrings("a", "b", "c"), longs(1, 2, 3)))

	arr, err := ToArrow(mem, m)
	require.NoError(t, err)
	defer arr.Release()

	mp := arr.(*array.Map)
	assert.Equal(t, 2, mp.Len())
	keys := mp.Keys().(*array.Binary)
	items := mp.Items().(*array.Int64)
	assert.Equal(t, 3, keys.Len())
	assert.Equal(t, []byte("c"), keys.Value(2))
	assert.Equal(t, int64(3), items.Value(2))
}

func TestRowAndNulls(t *testing.T) {
	mem := checked(t)
	row := block.Must(block.NewRowBlock(2, []bool{false, true},
		longs(10, 20), block.NewVariableWidthBlockFromStrings("x", "y")))

	dt, err := DataTypeOf(row)
	require.NoError(t, err)
	st0 := dt.(*arrow.StructType)
	require.Equal(t, 2, st0.NumFields())
	assert.Equal(t, "f1", st0.Field(1).Name)
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.Binary, st0.Field(1).Type))

	arr, err := ToArrow(mem, row)
	require.NoError(t, err)
	defer arr.Release()

	st := arr.(*array.Struct)
	assert.False(t, st.IsNull(0))
	assert.True(t, st.IsNull(1))
	assert.Equal(t, int64(10), st.Field(0).(*array.Int64).Value(0))
}

func TestDictionaryAndRunLengthAreMaterialized(t *testing.T) {
	mem := checked(t)
	dict := block.Must(block.NewDictionaryBlock([]int32{2, 0, 2},
		block.NewVariableWidthBlockFromStrings("x", "y", "z")))
	rle := block.Must(block.NewRunLengthBlock(longs(9), 4))

	arr, err := ToArrow(mem, dict)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []byte("z"), arr.(*array.Binary).Value(0))
	assert.Equal(t, []byte("x"), arr.(*array.Binary).Value(1))

	arr2, err := ToArrow(mem, rle)
	require.NoError(t, err)
	defer arr2.Release()
	assert.Equal(t, 4, arr2.Len())
	assert.Equal(t, int64(9), arr2.(*array.Int64).Value(3))
}

type opaque struct{ block.Block }

func (opaque) EncodingName() string { return "OPAQUE" }

func TestUnsupportedBlock(t *testing.T) {
	_, err := DataTypeOf(opaque{longs(1)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestToRecordFromSample(t *testing.T) {
	mem := checked(t)
	channels, err := sample.New(5).Channels(64)
	require.NoError(t, err)

	rec, err := ToRecord(mem, channels)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(64), rec.NumRows())
	assert.Equal(t, int64(len(channels)), rec.NumCols())
	for i, ch := range channels {
		col := rec.Column(i)
		for pos := 0; pos < ch.PositionCount(); pos++ {
			assert.Equal(t, ch.IsNull(pos), col.IsNull(pos), "%s[%d]", sample.ChannelNames[i], pos)
		}
	}
}

func TestToRecordRejectsRaggedChannels(t *testing.T) {
	_, err := ToRecord(checked(t), []block.Block{longs(1, 2), longs(1)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
