package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

const (
	nullsAbsent  byte = 0
	nullsPresent byte = 1
)

// EncodeNulls writes the null bitmap of b. When no position is null only the
// absent marker is written. Otherwise the present marker is followed by
// ceil(positionCount/8) bytes where bit i%8 of byte i/8 is set iff position i
// is null.
func EncodeNulls(sink slice.Sink, b Block) error {
	packed := PackNulls(b)
	if packed == nil {
		return sink.WriteByte(nullsAbsent)
	}
	if err := sink.WriteByte(nullsPresent); err != nil {
		return err
	}
	_, err := sink.Write(packed)
	return err
}

// PackNulls returns the packed null bits of b, or nil if b has no nulls.
func PackNulls(b Block) []byte {
	count := b.PositionCount()
	if count == 0 || !MayHaveNull(b) {
		return nil
	}
	var packed []byte
	for i := 0; i < count; i++ {
		if b.IsNull(i) {
			if packed == nil {
				packed = make([]byte, (count+7)/8)
			}
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}

// DecodeNulls reads a null bitmap for positionCount positions. It returns nil
// when the absent marker was written or positionCount is zero.
func DecodeNulls(src slice.Source, positionCount int) ([]bool, error) {
	marker, err := src.ReadByte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case nullsAbsent:
		return nil, nil
	case nullsPresent:
	default:
		return nil, errors.Corrupt("invalid null bitmap marker %d", marker)
	}
	if positionCount == 0 {
		return nil, nil
	}
	packed, err := src.ReadBytes((positionCount + 7) / 8)
	if err != nil {
		return nil, err
	}
	return UnpackNulls(packed, positionCount), nil
}

// UnpackNulls expands packed null bits into one flag per position.
func UnpackNulls(packed []byte, positionCount int) []bool {
	nulls := make([]bool, positionCount)
	for i := range nulls {
		nulls[i] = packed[i/8]&(1<<(i%8)) != 0
	}
	return nulls
}
