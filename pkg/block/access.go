package block

import (
	"bytes"
	"encoding/binary"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Valuer is implemented by blocks from custom encodings so ValueAt can
// materialize them.
type Valuer interface {
	ValueAt(position int) any
}

// Resolve follows dictionary and run-length indirections from position of b
// down to the block and position that hold the value.
func Resolve(b Block, position int) (Block, int) {
	for {
		switch t := b.(type) {
		case *DictionaryBlock:
			position = t.ID(position)
			b = t.dictionary
		case *RunLengthBlock:
			checkPosition(position, t.positionCount)
			position = 0
			b = t.value
		default:
			return b, position
		}
	}
}

func wrongType(b Block, want string) *errors.Error {
	return errors.Newf(errors.ErrorTypeInternal, "%s block has no %s values", b.EncodingName(), want).
		WithDetail("encoding", b.EncodingName())
}

func fixedValue[T Fixed](b Block, position int, want string) T {
	r, p := Resolve(b, position)
	fb, ok := r.(*FixedWidthBlock[T])
	if !ok {
		panic(wrongType(r, want))
	}
	return fb.Value(p)
}

// GetByte returns the int8 at position, resolving indirections.
func GetByte(b Block, position int) int8 { return fixedValue[int8](b, position, "byte") }

// GetShort returns the int16 at position, resolving indirections.
func GetShort(b Block, position int) int16 { return fixedValue[int16](b, position, "short") }

// GetInt returns the int32 at position, resolving indirections.
func GetInt(b Block, position int) int32 { return fixedValue[int32](b, position, "int") }

// GetLong returns the int64 at position, resolving indirections.
func GetLong(b Block, position int) int64 { return fixedValue[int64](b, position, "long") }

// GetInt128 returns the 128-bit value at position, resolving indirections.
func GetInt128(b Block, position int) Int128 { return fixedValue[Int128](b, position, "int128") }

// GetBytes returns the byte string at position, resolving indirections. The
// result aliases block storage.
func GetBytes(b Block, position int) []byte {
	r, p := Resolve(b, position)
	vb, ok := r.(*VariableWidthBlock)
	if !ok {
		panic(wrongType(r, "byte string"))
	}
	return vb.Value(p)
}

// GetArray returns the elements of the array at position.
func GetArray(b Block, position int) Block {
	r, p := Resolve(b, position)
	ab, ok := r.(*ArrayBlock)
	if !ok {
		panic(wrongType(r, "array"))
	}
	return ab.Array(p)
}

// GetMap returns the keys and values of the map at position.
func GetMap(b Block, position int) (keys, values Block) {
	r, p := Resolve(b, position)
	mb, ok := r.(*MapBlock)
	if !ok {
		panic(wrongType(r, "map"))
	}
	return mb.Entries(p)
}

// GetRow returns the materialized fields of the row at position.
func GetRow(b Block, position int) Row {
	r, p := Resolve(b, position)
	rb, ok := r.(*RowBlock)
	if !ok {
		panic(wrongType(r, "row"))
	}
	return rowValue(rb, p)
}

// ValueAt materializes position of b. Nulls become nil; fixed-width values
// their Go integer type (Int128 for 128-bit); byte strings []byte; arrays
// []any; maps []MapEntry; rows Row.
func ValueAt(b Block, position int) any {
	if b.IsNull(position) {
		return nil
	}
	r, p := Resolve(b, position)
	switch t := r.(type) {
	case *ByteBlock:
		return t.Value(p)
	case *ShortBlock:
		return t.Value(p)
	case *IntBlock:
		return t.Value(p)
	case *LongBlock:
		return t.Value(p)
	case *Int128Block:
		return t.Value(p)
	case *VariableWidthBlock:
		return t.Value(p)
	case *ArrayBlock:
		start, end := t.ElementRange(p)
		out := make([]any, 0, end-start)
		for e := start; e < end; e++ {
			out = append(out, ValueAt(t.elements, e))
		}
		return out
	case *MapBlock:
		start, end := t.EntryRange(p)
		out := make([]MapEntry, 0, end-start)
		for e := start; e < end; e++ {
			out = append(out, MapEntry{Key: ValueAt(t.keys, e), Value: ValueAt(t.values, e)})
		}
		return out
	case *RowBlock:
		return rowValue(t, p)
	case Valuer:
		return t.ValueAt(p)
	default:
		panic(errors.Newf(errors.ErrorTypeInternal, "cannot materialize %s block", r.EncodingName()))
	}
}

func rowValue(b *RowBlock, position int) Row {
	out := make(Row, len(b.fields))
	for i, f := range b.fields {
		out[i] = ValueAt(f, position)
	}
	return out
}

// Values materializes every position of b.
func Values(b Block) []any {
	out := make([]any, b.PositionCount())
	for i := range out {
		out[i] = ValueAt(b, i)
	}
	return out
}

// Equal reports whether a and b hold the same logical values: same position
// count, same nullness and equal materialized values at every position. The
// physical representation does not matter.
func Equal(a, b Block) bool {
	if a.PositionCount() != b.PositionCount() {
		return false
	}
	for i := 0; i < a.PositionCount(); i++ {
		if !PositionsEqual(a, i, b, i) {
			return false
		}
	}
	return true
}

// PositionsEqual compares a single position of two blocks.
func PositionsEqual(a Block, ap int, b Block, bp int) bool {
	return ValuesEqual(ValueAt(a, ap), ValueAt(b, bp))
}

// ValuesEqual compares two values produced by ValueAt.
func ValuesEqual(x, y any) bool {
	switch xv := x.(type) {
	case nil:
		return y == nil
	case []byte:
		yv, ok := y.([]byte)
		return ok && bytes.Equal(xv, yv)
	case []any:
		yv, ok := y.([]any)
		return ok && sliceEqual(xv, yv)
	case Row:
		yv, ok := y.(Row)
		return ok && sliceEqual(xv, yv)
	case []MapEntry:
		yv, ok := y.([]MapEntry)
		if !ok || len(xv) != len(yv) {
			return false
		}
		for i := range xv {
			if !ValuesEqual(xv[i].Key, yv[i].Key) || !ValuesEqual(xv[i].Value, yv[i].Value) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(x, y)
	}
}

func sliceEqual(x, y []any) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !ValuesEqual(x[i], y[i]) {
			return false
		}
	}
	return true
}

// HashPosition hashes the materialized value at position with XXH64. Equal
// values hash equally regardless of block representation.
func HashPosition(b Block, position int) uint64 {
	d := xxhash.New()
	hashValue(d, ValueAt(b, position))
	return d.Sum64()
}

func hashValue(d *xxhash.Digest, v any) {
	var buf [17]byte
	switch t := v.(type) {
	case nil:
		buf[0] = 0
		_, _ = d.Write(buf[:1])
	case int8:
		buf[0], buf[1] = 1, byte(t)
		_, _ = d.Write(buf[:2])
	case int16:
		buf[0] = 2
		binary.LittleEndian.PutUint16(buf[1:], uint16(t))
		_, _ = d.Write(buf[:3])
	case int32:
		buf[0] = 3
		binary.LittleEndian.PutUint32(buf[1:], uint32(t))
		_, _ = d.Write(buf[:5])
	case int64:
		buf[0] = 4
		binary.LittleEndian.PutUint64(buf[1:], uint64(t))
		_, _ = d.Write(buf[:9])
	case Int128:
		buf[0] = 5
		binary.LittleEndian.PutUint64(buf[1:], uint64(t[0]))
		binary.LittleEndian.PutUint64(buf[9:], uint64(t[1]))
		_, _ = d.Write(buf[:17])
	case []byte:
		buf[0] = 6
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(t)))
		_, _ = d.Write(buf[:5])
		_, _ = d.Write(t)
	case []any:
		hashList(d, 7, t)
	case Row:
		hashList(d, 8, t)
	case []MapEntry:
		buf[0] = 9
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(t)))
		_, _ = d.Write(buf[:5])
		for _, e := range t {
			hashValue(d, e.Key)
			hashValue(d, e.Value)
		}
	default:
		_, _ = d.WriteString(reflect.TypeOf(v).String())
	}
}

func hashList(d *xxhash.Digest, kind byte, items []any) {
	var buf [5]byte
	buf[0] = kind
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(items)))
	_, _ = d.Write(buf[:])
	for _, item := range items {
		hashValue(d, item)
	}
}
