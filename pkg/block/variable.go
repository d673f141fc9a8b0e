package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// VariableWidthBlock holds byte strings packed into one buffer. Position p
// covers data[offsets[offsetBase+p]:offsets[offsetBase+p+1]].
type VariableWidthBlock struct {
	data          []byte
	offsets       []int32
	nulls         []bool
	offsetBase    int
	positionCount int
}

// NewVariableWidthBlock wraps a packed buffer and its positionCount+1
// offsets. nulls may be nil.
func NewVariableWidthBlock(data []byte, offsets []int32, nulls []bool) (*VariableWidthBlock, error) {
	if err := checkOffsets(offsets, len(data)); err != nil {
		return nil, err
	}
	positionCount := len(offsets) - 1
	if err := checkNulls(nulls, positionCount); err != nil {
		return nil, err
	}
	return &VariableWidthBlock{
		data:          data,
		offsets:       offsets,
		nulls:         nulls,
		positionCount: positionCount,
	}, nil
}

// NewVariableWidthBlockFromValues packs values into a new block. A nil entry
// is a null position; an empty non-nil entry is an empty value. It panics
// with a validation error if the values need more than 2 GiB.
func NewVariableWidthBlockFromValues(values [][]byte) *VariableWidthBlock {
	total := 0
	hasNull := false
	for _, v := range values {
		total += len(v)
		hasNull = hasNull || v == nil
	}
	if err := checkDataSize(total); err != nil {
		panic(err)
	}
	data := make([]byte, 0, total)
	offsets := make([]int32, len(values)+1)
	var nulls []bool
	if hasNull {
		nulls = make([]bool, len(values))
	}
	for i, v := range values {
		if v == nil {
			nulls[i] = true
		}
		data = append(data, v...)
		offsets[i+1] = int32(len(data))
	}
	return &VariableWidthBlock{
		data:          data,
		offsets:       offsets,
		nulls:         nulls,
		positionCount: len(values),
	}
}

// NewVariableWidthBlockFromStrings packs strings into a new block without
// nulls.
func NewVariableWidthBlockFromStrings(values ...string) *VariableWidthBlock {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	return NewVariableWidthBlockFromValues(raw)
}

func (b *VariableWidthBlock) PositionCount() int { return b.positionCount }

func (b *VariableWidthBlock) EncodingName() string { return VariableWidthEncoding }

// MayHaveNull reports whether a null vector is attached.
func (b *VariableWidthBlock) MayHaveNull() bool { return b.nulls != nil }

func (b *VariableWidthBlock) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.nulls != nil && b.nulls[b.offsetBase+position]
}

// Value returns the bytes at position. The slice aliases the block's buffer
// and must not be modified.
func (b *VariableWidthBlock) Value(position int) []byte {
	checkPosition(position, b.positionCount)
	i := b.offsetBase + position
	return b.data[b.offsets[i]:b.offsets[i+1]:b.offsets[i+1]]
}

// ValueLength returns the byte length at position.
func (b *VariableWidthBlock) ValueLength(position int) int {
	checkPosition(position, b.positionCount)
	i := b.offsetBase + position
	return int(b.offsets[i+1] - b.offsets[i])
}

// Range returns the [start, end) byte range the block's positions cover in
// the shared buffer.
func (b *VariableWidthBlock) Range() (start, end int) {
	return int(b.offsets[b.offsetBase]), int(b.offsets[b.offsetBase+b.positionCount])
}

func (b *VariableWidthBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return &VariableWidthBlock{
		data:          b.data,
		offsets:       b.offsets,
		nulls:         b.nulls,
		offsetBase:    b.offsetBase + offset,
		positionCount: length,
	}, nil
}

func (b *VariableWidthBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	total := 0
	for _, p := range positions {
		total += b.ValueLength(p)
	}
	if err := checkDataSize(total); err != nil {
		return nil, err
	}
	data := make([]byte, 0, total)
	offsets := make([]int32, len(positions)+1)
	for i, p := range positions {
		data = append(data, b.Value(p)...)
		offsets[i+1] = int32(len(data))
	}
	return &VariableWidthBlock{
		data:          data,
		offsets:       offsets,
		nulls:         copyNulls(b.nulls, b.offsetBase, positions),
		positionCount: len(positions),
	}, nil
}

func (b *VariableWidthBlock) SizeInBytes() int64 {
	start, end := b.Range()
	return int64(end-start) + 4*int64(b.positionCount+1) + nullsSize(b.nulls, b.positionCount)
}

const maxInt32 = 1<<31 - 1

// checkDataSize rejects packed data that int32 offsets cannot address.
func checkDataSize(total int) error {
	if total > maxInt32 {
		return errors.Newf(errors.ErrorTypeValidation, "values need %d bytes, limit is %d", total, maxInt32).
			WithDetail("bytes", total)
	}
	return nil
}
