package block

import "encoding/binary"

// Int128 is a 128-bit value stored as two int64 words, high word first.
type Int128 = [2]int64

// Fixed is the set of value types a FixedWidthBlock can hold.
type Fixed interface {
	int8 | int16 | int32 | int64 | Int128
}

// fixedKind describes the wire form of one fixed-width value type.
type fixedKind[T Fixed] struct {
	name  string
	width int
	put   func(dst []byte, v T)
	get   func(src []byte) T
}

var (
	byteKind = &fixedKind[int8]{
		name:  ByteArrayEncoding,
		width: 1,
		put:   func(dst []byte, v int8) { dst[0] = byte(v) },
		get:   func(src []byte) int8 { return int8(src[0]) },
	}
	shortKind = &fixedKind[int16]{
		name:  ShortArrayEncoding,
		width: 2,
		put:   func(dst []byte, v int16) { binary.LittleEndian.PutUint16(dst, uint16(v)) },
		get:   func(src []byte) int16 { return int16(binary.LittleEndian.Uint16(src)) },
	}
	intKind = &fixedKind[int32]{
		name:  IntArrayEncoding,
		width: 4,
		put:   func(dst []byte, v int32) { binary.LittleEndian.PutUint32(dst, uint32(v)) },
		get:   func(src []byte) int32 { return int32(binary.LittleEndian.Uint32(src)) },
	}
	longKind = &fixedKind[int64]{
		name:  LongArrayEncoding,
		width: 8,
		put:   func(dst []byte, v int64) { binary.LittleEndian.PutUint64(dst, uint64(v)) },
		get:   func(src []byte) int64 { return int64(binary.LittleEndian.Uint64(src)) },
	}
	int128Kind = &fixedKind[Int128]{
		name:  Int128ArrayEncoding,
		width: 16,
		put: func(dst []byte, v Int128) {
			binary.LittleEndian.PutUint64(dst, uint64(v[0]))
			binary.LittleEndian.PutUint64(dst[8:], uint64(v[1]))
		},
		get: func(src []byte) Int128 {
			return Int128{
				int64(binary.LittleEndian.Uint64(src)),
				int64(binary.LittleEndian.Uint64(src[8:])),
			}
		},
	}
)

// FixedWidthBlock holds primitive values of a single fixed width plus an
// optional null vector. Null positions hold the zero value.
type FixedWidthBlock[T Fixed] struct {
	kind          *fixedKind[T]
	values        []T
	nulls         []bool
	arrayOffset   int
	positionCount int
}

type (
	ByteBlock   = FixedWidthBlock[int8]
	ShortBlock  = FixedWidthBlock[int16]
	IntBlock    = FixedWidthBlock[int32]
	LongBlock   = FixedWidthBlock[int64]
	Int128Block = FixedWidthBlock[Int128]
)

func newFixed[T Fixed](kind *fixedKind[T], values []T, nulls []bool) (*FixedWidthBlock[T], error) {
	if err := checkNulls(nulls, len(values)); err != nil {
		return nil, err
	}
	return &FixedWidthBlock[T]{
		kind:          kind,
		values:        values,
		nulls:         nulls,
		positionCount: len(values),
	}, nil
}

// NewByteBlock wraps values; nulls may be nil.
func NewByteBlock(values []int8, nulls []bool) (*ByteBlock, error) {
	return newFixed(byteKind, values, nulls)
}

// NewShortBlock wraps values; nulls may be nil.
func NewShortBlock(values []int16, nulls []bool) (*ShortBlock, error) {
	return newFixed(shortKind, values, nulls)
}

// NewIntBlock wraps values; nulls may be nil.
func NewIntBlock(values []int32, nulls []bool) (*IntBlock, error) {
	return newFixed(intKind, values, nulls)
}

// NewLongBlock wraps values; nulls may be nil.
func NewLongBlock(values []int64, nulls []bool) (*LongBlock, error) {
	return newFixed(longKind, values, nulls)
}

// NewInt128Block wraps values; nulls may be nil.
func NewInt128Block(values []Int128, nulls []bool) (*Int128Block, error) {
	return newFixed(int128Kind, values, nulls)
}

func (b *FixedWidthBlock[T]) PositionCount() int { return b.positionCount }

func (b *FixedWidthBlock[T]) EncodingName() string { return b.kind.name }

// MayHaveNull reports whether a null vector is attached.
func (b *FixedWidthBlock[T]) MayHaveNull() bool { return b.nulls != nil }

func (b *FixedWidthBlock[T]) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.nulls != nil && b.nulls[b.arrayOffset+position]
}

// Value returns the value at position. Null positions return the zero value.
func (b *FixedWidthBlock[T]) Value(position int) T {
	checkPosition(position, b.positionCount)
	return b.values[b.arrayOffset+position]
}

// Width returns the encoded size of one value in bytes.
func (b *FixedWidthBlock[T]) Width() int { return b.kind.width }

func (b *FixedWidthBlock[T]) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return &FixedWidthBlock[T]{
		kind:          b.kind,
		values:        b.values,
		nulls:         b.nulls,
		arrayOffset:   b.arrayOffset + offset,
		positionCount: length,
	}, nil
}

func (b *FixedWidthBlock[T]) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	values := make([]T, len(positions))
	for i, p := range positions {
		values[i] = b.values[b.arrayOffset+p]
	}
	return &FixedWidthBlock[T]{
		kind:          b.kind,
		values:        values,
		nulls:         copyNulls(b.nulls, b.arrayOffset, positions),
		positionCount: len(positions),
	}, nil
}

func (b *FixedWidthBlock[T]) SizeInBytes() int64 {
	return int64(b.positionCount)*int64(b.kind.width) + nullsSize(b.nulls, b.positionCount)
}
