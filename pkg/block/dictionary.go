package block

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// DictionaryBlock maps each position to an entry of a shared dictionary
// block through an id vector.
type DictionaryBlock struct {
	dictionary    Block
	ids           []int32
	idsOffset     int
	positionCount int
}

// NewDictionaryBlock builds a dictionary block. Every id must address a
// position of dictionary.
func NewDictionaryBlock(ids []int32, dictionary Block) (*DictionaryBlock, error) {
	if dictionary == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "dictionary must not be nil")
	}
	size := dictionary.PositionCount()
	for i, id := range ids {
		if id < 0 || int(id) >= size {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"dictionary id %d at position %d outside [0, %d)", id, i, size).
				WithDetail("position", i)
		}
	}
	return &DictionaryBlock{
		dictionary:    dictionary,
		ids:           ids,
		positionCount: len(ids),
	}, nil
}

func (b *DictionaryBlock) PositionCount() int { return b.positionCount }

func (b *DictionaryBlock) EncodingName() string { return DictionaryEncoding }

// MayHaveNull reports whether the dictionary may contain nulls.
func (b *DictionaryBlock) MayHaveNull() bool { return MayHaveNull(b.dictionary) }

func (b *DictionaryBlock) IsNull(position int) bool {
	return b.dictionary.IsNull(b.ID(position))
}

// ID returns the dictionary position referenced by position.
func (b *DictionaryBlock) ID(position int) int {
	checkPosition(position, b.positionCount)
	return int(b.ids[b.idsOffset+position])
}

// Dictionary returns the shared dictionary block.
func (b *DictionaryBlock) Dictionary() Block { return b.dictionary }

func (b *DictionaryBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return &DictionaryBlock{
		dictionary:    b.dictionary,
		ids:           b.ids,
		idsOffset:     b.idsOffset + offset,
		positionCount: length,
	}, nil
}

func (b *DictionaryBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	ids := make([]int32, len(positions))
	for i, p := range positions {
		ids[i] = b.ids[b.idsOffset+p]
	}
	return &DictionaryBlock{
		dictionary:    b.dictionary,
		ids:           ids,
		positionCount: len(positions),
	}, nil
}

// Compact returns a dictionary block whose dictionary holds only the
// entries this view references, in order of first reference. The receiver
// is returned unchanged when every entry is already referenced.
func (b *DictionaryBlock) Compact() (*DictionaryBlock, error) {
	size := b.dictionary.PositionCount()
	remap := make([]int32, size)
	for i := range remap {
		remap[i] = -1
	}
	used := make([]int, 0, min(size, b.positionCount))
	ids := make([]int32, b.positionCount)
	for i := 0; i < b.positionCount; i++ {
		id := b.ids[b.idsOffset+i]
		if remap[id] < 0 {
			remap[id] = int32(len(used))
			used = append(used, int(id))
		}
		ids[i] = remap[id]
	}
	if len(used) == size {
		return b, nil
	}
	dictionary, err := b.dictionary.CopyPositions(used)
	if err != nil {
		return nil, err
	}
	return &DictionaryBlock{
		dictionary:    dictionary,
		ids:           ids,
		positionCount: b.positionCount,
	}, nil
}

// SizeInBytes counts the ids plus the whole dictionary, which is shared
// with every view of it.
func (b *DictionaryBlock) SizeInBytes() int64 {
	return 4*int64(b.positionCount) + b.dictionary.SizeInBytes()
}
