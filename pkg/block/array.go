package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// ArrayBlock holds one variable-length list per position. Position p covers
// elements [offsets[offsetBase+p], offsets[offsetBase+p+1]) of a possibly
// shared element block. A null position may still cover a non-empty range;
// its nullness wins over the content.
type ArrayBlock struct {
	elements      Block
	offsets       []int32
	nulls         []bool
	offsetBase    int
	positionCount int
}

// NewArrayBlock builds an array block over elements from positionCount+1
// offsets. nulls may be nil.
func NewArrayBlock(offsets []int32, nulls []bool, elements Block) (*ArrayBlock, error) {
	if elements == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "array elements must not be nil")
	}
	if err := checkOffsets(offsets, elements.PositionCount()); err != nil {
		return nil, err
	}
	positionCount := len(offsets) - 1
	if err := checkNulls(nulls, positionCount); err != nil {
		return nil, err
	}
	return &ArrayBlock{
		elements:      elements,
		offsets:       offsets,
		nulls:         nulls,
		positionCount: positionCount,
	}, nil
}

func (b *ArrayBlock) PositionCount() int { return b.positionCount }

func (b *ArrayBlock) EncodingName() string { return ArrayEncoding }

// MayHaveNull reports whether a null vector is attached.
func (b *ArrayBlock) MayHaveNull() bool { return b.nulls != nil }

func (b *ArrayBlock) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.nulls != nil && b.nulls[b.offsetBase+position]
}

// RawElements returns the element block the offsets address, which may be
// shared with other views and extend past this block's range.
func (b *ArrayBlock) RawElements() Block { return b.elements }

// OffsetBase returns the index of this view's first offset.
func (b *ArrayBlock) OffsetBase() int { return b.offsetBase }

// Offset returns offsets[offsetBase+i] for i in [0, PositionCount].
func (b *ArrayBlock) Offset(i int) int {
	checkPosition(i, b.positionCount+1)
	return int(b.offsets[b.offsetBase+i])
}

// ElementRange returns the [start, end) element range of position in
// RawElements.
func (b *ArrayBlock) ElementRange(position int) (start, end int) {
	checkPosition(position, b.positionCount)
	i := b.offsetBase + position
	return int(b.offsets[i]), int(b.offsets[i+1])
}

// Elements returns the element block narrowed to exactly the range this
// view references.
func (b *ArrayBlock) Elements() Block {
	start, end := b.Offset(0), b.Offset(b.positionCount)
	return mustRegion(b.elements, start, end-start)
}

// Array returns the elements of one position as a block.
func (b *ArrayBlock) Array(position int) Block {
	start, end := b.ElementRange(position)
	return mustRegion(b.elements, start, end-start)
}

// Region narrows the offsets window without copying. The elements stay
// shared in full; Elements returns the range the region references.
func (b *ArrayBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return &ArrayBlock{
		elements:      b.elements,
		offsets:       b.offsets,
		nulls:         b.nulls,
		offsetBase:    b.offsetBase + offset,
		positionCount: length,
	}, nil
}

func (b *ArrayBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	offsets, elementPositions := gatherRanges(b.offsets, b.offsetBase, positions)
	elements, err := b.elements.CopyPositions(elementPositions)
	if err != nil {
		return nil, err
	}
	return &ArrayBlock{
		elements:      elements,
		offsets:       offsets,
		nulls:         copyNulls(b.nulls, b.offsetBase, positions),
		positionCount: len(positions),
	}, nil
}

func (b *ArrayBlock) SizeInBytes() int64 {
	return b.Elements().SizeInBytes() + 4*int64(b.positionCount+1) + nullsSize(b.nulls, b.positionCount)
}

// gatherRanges collects the child positions referenced by the listed parent
// positions and the new zero-based offsets over them.
func gatherRanges(offsets []int32, base int, positions []int) ([]int32, []int) {
	total := 0
	for _, p := range positions {
		total += int(offsets[base+p+1] - offsets[base+p])
	}
	newOffsets := make([]int32, len(positions)+1)
	childPositions := make([]int, 0, total)
	for i, p := range positions {
		for e := offsets[base+p]; e < offsets[base+p+1]; e++ {
			childPositions = append(childPositions, int(e))
		}
		newOffsets[i+1] = int32(len(childPositions))
	}
	return newOffsets, childPositions
}

// mustRegion narrows a child to a range already known to be valid.
func mustRegion(b Block, offset, length int) Block {
	r, err := b.Region(offset, length)
	if err != nil {
		panic(err)
	}
	return r
}
