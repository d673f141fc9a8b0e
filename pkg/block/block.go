// Package block implements the columnar Block model and its self-describing
// wire encoding.
//
// A Block is an immutable, position-addressed column. Leaf blocks hold
// primitive values (FixedWidthBlock) or byte strings (VariableWidthBlock).
// Composite blocks are built from other blocks through offset or id
// indirection: ArrayBlock, MapBlock, RowBlock, DictionaryBlock and
// RunLengthBlock.
//
// Region returns a view sharing the parent's backing arrays; only the
// offsetBase/positionCount window changes. Views keep the parent's storage
// alive for as long as they are reachable.
//
// A Serde maps encoding tags to codecs and writes or reads blocks through a
// slice.Sink or slice.Source:
//
//	serde, err := block.NewSerde()
//	out := slice.NewOutput(1024)
//	err = serde.WriteBlock(out, b)
//	decoded, err := serde.ReadBlock(slice.NewInput(out.Bytes()))
package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Encoding tags of the built-in codecs.
const (
	ByteArrayEncoding     = "BYTE_ARRAY"
	ShortArrayEncoding    = "SHORT_ARRAY"
	IntArrayEncoding      = "INT_ARRAY"
	LongArrayEncoding     = "LONG_ARRAY"
	Int128ArrayEncoding   = "INT128_ARRAY"
	VariableWidthEncoding = "VARIABLE_WIDTH"
	ArrayEncoding         = "ARRAY"
	MapEncoding           = "MAP"
	RowEncoding           = "ROW"
	DictionaryEncoding    = "DICTIONARY"
	RunLengthEncoding     = "RLE"
)

// Block is an immutable columnar container addressed by position.
type Block interface {
	// PositionCount returns the number of logical rows.
	PositionCount() int
	// IsNull reports whether position is null. It panics with an
	// out_of_range *errors.Error when position is outside [0, PositionCount).
	IsNull(position int) bool
	// Region returns a view of length positions starting at offset. Leaf
	// value storage is shared with the receiver.
	Region(offset, length int) (Block, error)
	// CopyPositions returns a block with freshly allocated storage holding
	// the listed positions in order. Positions may repeat.
	CopyPositions(positions []int) (Block, error)
	// SizeInBytes returns the logical size of this view.
	SizeInBytes() int64
	// EncodingName returns the tag of the codec that serializes this block.
	EncodingName() string
}

// Must panics if err is non-nil and otherwise returns b. It is meant for
// constructing literal blocks whose validity is known statically.
func Must[B Block](b B, err error) B {
	if err != nil {
		panic(err)
	}
	return b
}

func checkPosition(position, positionCount int) {
	if position < 0 || position >= positionCount {
		panic(errors.OutOfRange("position %d outside [0, %d)", position, positionCount).
			WithDetail("position", position).
			WithDetail("position_count", positionCount))
	}
}

func checkRegion(offset, length, positionCount int) error {
	if offset < 0 || length < 0 || offset+length > positionCount {
		return errors.OutOfRange("region [%d, %d+%d) outside [0, %d)", offset, offset, length, positionCount).
			WithDetail("offset", offset).
			WithDetail("length", length).
			WithDetail("position_count", positionCount)
	}
	return nil
}

func checkPositions(positions []int, positionCount int) error {
	for i, p := range positions {
		if p < 0 || p >= positionCount {
			return errors.OutOfRange("positions[%d] = %d outside [0, %d)", i, p, positionCount).
				WithDetail("position_count", positionCount)
		}
	}
	return nil
}

// checkNulls validates an optional null vector against positionCount.
func checkNulls(nulls []bool, positionCount int) error {
	if nulls != nil && len(nulls) != positionCount {
		return errors.Newf(errors.ErrorTypeValidation,
			"null vector has %d entries, expected %d", len(nulls), positionCount)
	}
	return nil
}

// checkOffsets validates an offsets vector of positionCount+1 entries
// addressing a child of childCount entries.
func checkOffsets(offsets []int32, childCount int) error {
	if len(offsets) == 0 {
		return errors.New(errors.ErrorTypeValidation, "offsets must hold at least one entry")
	}
	if offsets[0] < 0 {
		return errors.Newf(errors.ErrorTypeValidation, "first offset %d is negative", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return errors.Newf(errors.ErrorTypeValidation,
				"offsets decrease at position %d: %d < %d", i-1, offsets[i], offsets[i-1]).
				WithDetail("position", i-1)
		}
	}
	if last := offsets[len(offsets)-1]; int(last) > childCount {
		return errors.Newf(errors.ErrorTypeValidation,
			"last offset %d exceeds child size %d", last, childCount)
	}
	return nil
}

// nullsWindow copies the null flags of positions [base, base+count) or
// returns nil when none is set.
func nullsWindow(nulls []bool, base, count int) []bool {
	if nulls == nil {
		return nil
	}
	for _, n := range nulls[base : base+count] {
		if n {
			out := make([]bool, count)
			copy(out, nulls[base:base+count])
			return out
		}
	}
	return nil
}

// copyNulls gathers the null flags of the listed positions relative to base.
func copyNulls(nulls []bool, base int, positions []int) []bool {
	if nulls == nil {
		return nil
	}
	var out []bool
	for i, p := range positions {
		if nulls[base+p] {
			if out == nil {
				out = make([]bool, len(positions))
			}
			out[i] = true
		}
	}
	return out
}

func nullsSize(nulls []bool, count int) int64 {
	if nulls == nil {
		return 0
	}
	return int64(count)
}

// MayHaveNull reports whether b can contain null positions. A false result
// is exact; a true result may still turn out to have no nulls.
func MayHaveNull(b Block) bool {
	if m, ok := b.(interface{ MayHaveNull() bool }); ok {
		return m.MayHaveNull()
	}
	return true
}
