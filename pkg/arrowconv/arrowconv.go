// Package arrowconv exports blocks as Apache Arrow arrays.
//
// Dictionary and run-length blocks are materialized: the Arrow array has the
// type of the underlying block. INT128 values become 16-byte fixed-size
// binaries holding the high word then the low word, both big-endian.
package arrowconv

import (
	"encoding/binary"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Int128Type is the Arrow type of INT128_ARRAY blocks.
var Int128Type = &arrow.FixedSizeBinaryType{ByteWidth: 16}

// DataTypeOf returns the Arrow type that ToArrow produces for b.
func DataTypeOf(b block.Block) (arrow.DataType, error) {
	switch t := b.(type) {
	case *block.ByteBlock:
		return arrow.PrimitiveTypes.Int8, nil
	case *block.ShortBlock:
		return arrow.PrimitiveTypes.Int16, nil
	case *block.IntBlock:
		return arrow.PrimitiveTypes.Int32, nil
	case *block.LongBlock:
		return arrow.PrimitiveTypes.Int64, nil
	case *block.Int128Block:
		return Int128Type, nil
	case *block.VariableWidthBlock:
		return arrow.BinaryTypes.Binary, nil
	case *block.ArrayBlock:
		elem, err := DataTypeOf(t.RawElements())
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	case *block.MapBlock:
		key, err := DataTypeOf(t.RawKeys())
		if err != nil {
			return nil, err
		}
		item, err := DataTypeOf(t.RawValues())
		if err != nil {
			return nil, err
		}
		return arrow.MapOf(key, item), nil
	case *block.RowBlock:
		fields := make([]arrow.Field, t.FieldCount())
		for i := range fields {
			dt, err := DataTypeOf(t.Field(i))
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: fmt.Sprintf("f%d", i), Type: dt, Nullable: true}
		}
		return arrow.StructOf(fields...), nil
	case *block.DictionaryBlock:
		return DataTypeOf(t.Dictionary())
	case *block.RunLengthBlock:
		return DataTypeOf(t.Value())
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "no arrow type for %s block", b.EncodingName()).
			WithDetail("encoding", b.EncodingName())
	}
}

// ToArrow copies every position of b into a new Arrow array allocated from
// mem. The caller must Release the result.
func ToArrow(mem memory.Allocator, b block.Block) (arrow.Array, error) {
	dt, err := DataTypeOf(b)
	if err != nil {
		return nil, err
	}
	bld := array.NewBuilder(mem, dt)
	defer bld.Release()

	bld.Reserve(b.PositionCount())
	for pos := 0; pos < b.PositionCount(); pos++ {
		appendValue(bld, b, pos)
	}
	return bld.NewArray(), nil
}

// ToRecord exports equal-length channels as a record with columns c0..cn.
func ToRecord(mem memory.Allocator, channels []block.Block) (arrow.Record, error) {
	fields := make([]arrow.Field, len(channels))
	cols := make([]arrow.Array, 0, len(channels))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rows := int64(-1)
	for i, ch := range channels {
		if rows >= 0 && int64(ch.PositionCount()) != rows {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"channel %d has %d positions, expected %d", i, ch.PositionCount(), rows)
		}
		rows = int64(ch.PositionCount())
		arr, err := ToArrow(mem, ch)
		if err != nil {
			return nil, err
		}
		cols = append(cols, arr)
		fields[i] = arrow.Field{Name: fmt.Sprintf("c%d", i), Type: arr.DataType(), Nullable: true}
	}
	if rows < 0 {
		rows = 0
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rows), nil
}

// appendValue appends one position of b to bld, whose type came from
// DataTypeOf(b).
func appendValue(bld array.Builder, b block.Block, pos int) {
	b, pos = block.Resolve(b, pos)
	if b.IsNull(pos) {
		bld.AppendNull()
		return
	}

	switch v := b.(type) {
	case *block.ByteBlock:
		bld.(*array.Int8Builder).Append(v.Value(pos))
	case *block.ShortBlock:
		bld.(*array.Int16Builder).Append(v.Value(pos))
	case *block.IntBlock:
		bld.(*array.Int32Builder).Append(v.Value(pos))
	case *block.LongBlock:
		bld.(*array.Int64Builder).Append(v.Value(pos))
	case *block.Int128Block:
		val := v.Value(pos)
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[:8], uint64(val[0]))
		binary.BigEndian.PutUint64(buf[8:], uint64(val[1]))
		bld.(*array.FixedSizeBinaryBuilder).Append(buf[:])
	case *block.VariableWidthBlock:
		bld.(*array.BinaryBuilder).Append(v.Value(pos))
	case *block.ArrayBlock:
		lb := bld.(*array.ListBuilder)
		lb.Append(true)
		start, end := v.ElementRange(pos)
		for i := start; i < end; i++ {
			appendValue(lb.ValueBuilder(), v.RawElements(), i)
		}
	case *block.MapBlock:
		mb := bld.(*array.MapBuilder)
		mb.Append(true)
		start, end := v.EntryRange(pos)
		for i := start; i < end; i++ {
			appendValue(mb.KeyBuilder(), v.RawKeys(), i)
			appendValue(mb.ItemBuilder(), v.RawValues(), i)
		}
	case *block.RowBlock:
		sb := bld.(*array.StructBuilder)
		sb.Append(true)
		for f := 0; f < v.FieldCount(); f++ {
			appendValue(sb.FieldBuilder(f), v.Field(f), pos)
		}
	}
}
