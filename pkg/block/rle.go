package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// RunLengthBlock repeats a single-position value block positionCount times.
type RunLengthBlock struct {
	value         Block
	positionCount int
}

// NewRunLengthBlock repeats value, which must have exactly one position.
func NewRunLengthBlock(value Block, positionCount int) (*RunLengthBlock, error) {
	if value == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "run-length value must not be nil")
	}
	if value.PositionCount() != 1 {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"run-length value must have 1 position, got %d", value.PositionCount())
	}
	if positionCount < 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "negative position count %d", positionCount)
	}
	return &RunLengthBlock{value: value, positionCount: positionCount}, nil
}

func (b *RunLengthBlock) PositionCount() int { return b.positionCount }

func (b *RunLengthBlock) EncodingName() string { return RunLengthEncoding }

// MayHaveNull reports whether the repeated value may be null.
func (b *RunLengthBlock) MayHaveNull() bool { return MayHaveNull(b.value) }

func (b *RunLengthBlock) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.value.IsNull(0)
}

// Value returns the single-position block being repeated.
func (b *RunLengthBlock) Value() Block { return b.value }

func (b *RunLengthBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return &RunLengthBlock{value: b.value, positionCount: length}, nil
}

func (b *RunLengthBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	return &RunLengthBlock{value: b.value, positionCount: len(positions)}, nil
}

func (b *RunLengthBlock) SizeInBytes() int64 { return b.value.SizeInBytes() }
