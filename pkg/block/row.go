package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// RowBlock holds an ordered list of field blocks that share one position
// count. Field values at a null row position are ignored.
type RowBlock struct {
	fields        []Block
	nulls         []bool
	arrayOffset   int
	positionCount int
}

// Row is a materialized row value, one entry per field.
type Row []any

// NewRowBlock builds a row block of positionCount rows. Every field must
// have exactly positionCount positions. nulls may be nil.
func NewRowBlock(positionCount int, nulls []bool, fields ...Block) (*RowBlock, error) {
	if positionCount < 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "negative position count %d", positionCount)
	}
	if err := checkNulls(nulls, positionCount); err != nil {
		return nil, err
	}
	for i, f := range fields {
		if f == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "row field %d is nil", i)
		}
		if f.PositionCount() != positionCount {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"row field %d has %d positions, expected %d", i, f.PositionCount(), positionCount).
				WithDetail("field", i)
		}
	}
	return &RowBlock{
		fields:        fields,
		nulls:         nulls,
		positionCount: positionCount,
	}, nil
}

func (b *RowBlock) PositionCount() int { return b.positionCount }

func (b *RowBlock) EncodingName() string { return RowEncoding }

// MayHaveNull reports whether a null vector is attached.
func (b *RowBlock) MayHaveNull() bool { return b.nulls != nil }

func (b *RowBlock) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.nulls != nil && b.nulls[b.arrayOffset+position]
}

// FieldCount returns the number of fields.
func (b *RowBlock) FieldCount() int { return len(b.fields) }

// Field returns field i, aligned with this block's positions.
func (b *RowBlock) Field(i int) Block {
	checkPosition(i, len(b.fields))
	return b.fields[i]
}

// Fields returns all field blocks. The slice must not be modified.
func (b *RowBlock) Fields() []Block { return b.fields }

func (b *RowBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	fields := make([]Block, len(b.fields))
	for i, f := range b.fields {
		r, err := f.Region(offset, length)
		if err != nil {
			return nil, err
		}
		fields[i] = r
	}
	return &RowBlock{
		fields:        fields,
		nulls:         b.nulls,
		arrayOffset:   b.arrayOffset + offset,
		positionCount: length,
	}, nil
}

func (b *RowBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	fields := make([]Block, len(b.fields))
	for i, f := range b.fields {
		c, err := f.CopyPositions(positions)
		if err != nil {
			return nil, err
		}
		fields[i] = c
	}
	return &RowBlock{
		fields:        fields,
		nulls:         copyNulls(b.nulls, b.arrayOffset, positions),
		positionCount: len(positions),
	}, nil
}

func (b *RowBlock) SizeInBytes() int64 {
	size := nullsSize(b.nulls, b.positionCount)
	for _, f := range b.fields {
		size += f.SizeInBytes()
	}
	return size
}
