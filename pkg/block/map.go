package block

import (
	"sync"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// MapBlock holds one key/value list per position. Keys and values are
// parallel blocks addressed by one shared offsets vector, the same way
// ArrayBlock addresses its elements. Keys are never null.
type MapBlock struct {
	keys          Block
	values        Block
	offsets       []int32
	nulls         []bool
	offsetBase    int
	positionCount int

	index *mapIndex
}

// MapEntry is one materialized key/value pair.
type MapEntry struct {
	Key   any
	Value any
}

// NewMapBlock builds a map block from positionCount+1 offsets over parallel
// key and value blocks. nulls may be nil.
func NewMapBlock(offsets []int32, nulls []bool, keys, values Block) (*MapBlock, error) {
	if keys == nil || values == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "map keys and values must not be nil")
	}
	if keys.PositionCount() != values.PositionCount() {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"map has %d keys but %d values", keys.PositionCount(), values.PositionCount())
	}
	if err := checkOffsets(offsets, keys.PositionCount()); err != nil {
		return nil, err
	}
	positionCount := len(offsets) - 1
	if err := checkNulls(nulls, positionCount); err != nil {
		return nil, err
	}
	if MayHaveNull(keys) {
		for i, n := 0, keys.PositionCount(); i < n; i++ {
			if keys.IsNull(i) {
				return nil, errors.Newf(errors.ErrorTypeValidation, "map key at %d is null", i).
					WithDetail("position", i)
			}
		}
	}
	return newMapView(keys, values, offsets, nulls, 0, positionCount), nil
}

func newMapView(keys, values Block, offsets []int32, nulls []bool, base, count int) *MapBlock {
	return &MapBlock{
		keys:          keys,
		values:        values,
		offsets:       offsets,
		nulls:         nulls,
		offsetBase:    base,
		positionCount: count,
		index:         &mapIndex{},
	}
}

func (b *MapBlock) PositionCount() int { return b.positionCount }

func (b *MapBlock) EncodingName() string { return MapEncoding }

// MayHaveNull reports whether a null vector is attached.
func (b *MapBlock) MayHaveNull() bool { return b.nulls != nil }

func (b *MapBlock) IsNull(position int) bool {
	checkPosition(position, b.positionCount)
	return b.nulls != nil && b.nulls[b.offsetBase+position]
}

// RawKeys returns the shared key block the offsets address.
func (b *MapBlock) RawKeys() Block { return b.keys }

// RawValues returns the shared value block the offsets address.
func (b *MapBlock) RawValues() Block { return b.values }

// OffsetBase returns the index of this view's first offset.
func (b *MapBlock) OffsetBase() int { return b.offsetBase }

// Offset returns offsets[offsetBase+i] for i in [0, PositionCount].
func (b *MapBlock) Offset(i int) int {
	checkPosition(i, b.positionCount+1)
	return int(b.offsets[b.offsetBase+i])
}

// EntryRange returns the [start, end) entry range of position in RawKeys and
// RawValues.
func (b *MapBlock) EntryRange(position int) (start, end int) {
	checkPosition(position, b.positionCount)
	i := b.offsetBase + position
	return int(b.offsets[i]), int(b.offsets[i+1])
}

// Keys returns the key block narrowed to the range this view references.
func (b *MapBlock) Keys() Block {
	start, end := b.Offset(0), b.Offset(b.positionCount)
	return mustRegion(b.keys, start, end-start)
}

// Values returns the value block narrowed to the range this view references.
func (b *MapBlock) Values() Block {
	start, end := b.Offset(0), b.Offset(b.positionCount)
	return mustRegion(b.values, start, end-start)
}

// Entries returns the keys and values of one position.
func (b *MapBlock) Entries(position int) (keys, values Block) {
	start, end := b.EntryRange(position)
	return mustRegion(b.keys, start, end-start), mustRegion(b.values, start, end-start)
}

// Region narrows the offsets window without copying. The keys and values stay
// shared in full; Keys and Values return the range the region references.
func (b *MapBlock) Region(offset, length int) (Block, error) {
	if err := checkRegion(offset, length, b.positionCount); err != nil {
		return nil, err
	}
	return newMapView(b.keys, b.values, b.offsets, b.nulls, b.offsetBase+offset, length), nil
}

func (b *MapBlock) CopyPositions(positions []int) (Block, error) {
	if err := checkPositions(positions, b.positionCount); err != nil {
		return nil, err
	}
	offsets, entryPositions := gatherRanges(b.offsets, b.offsetBase, positions)
	keys, err := b.keys.CopyPositions(entryPositions)
	if err != nil {
		return nil, err
	}
	values, err := b.values.CopyPositions(entryPositions)
	if err != nil {
		return nil, err
	}
	return newMapView(keys, values, offsets, copyNulls(b.nulls, b.offsetBase, positions), 0, len(positions)), nil
}

func (b *MapBlock) SizeInBytes() int64 {
	return b.Keys().SizeInBytes() + b.Values().SizeInBytes() +
		4*int64(b.positionCount+1) + nullsSize(b.nulls, b.positionCount)
}

// Lookup finds the entry of map position whose key equals key[keyPosition].
// It returns the entry index into RawValues. Null map positions contain no
// entries. The hash index is built on first use and shared by concurrent
// callers.
func (b *MapBlock) Lookup(position int, key Block, keyPosition int) (int, bool) {
	checkPosition(position, b.positionCount)
	checkPosition(keyPosition, key.PositionCount())
	if b.IsNull(position) || key.IsNull(keyPosition) {
		return 0, false
	}
	b.index.once.Do(func() { b.index.build(b) })
	return b.index.find(b, position, key, keyPosition)
}

// Get returns the materialized value stored under key[keyPosition].
func (b *MapBlock) Get(position int, key Block, keyPosition int) (any, bool) {
	idx, ok := b.Lookup(position, key, keyPosition)
	if !ok {
		return nil, false
	}
	return ValueAt(b.values, idx), true
}

// mapIndex is an open-addressing hash table per map position. Slot values
// are absolute key indexes plus one; zero marks an empty slot.
type mapIndex struct {
	once   sync.Once
	starts []int
	slots  []int32
}

func (idx *mapIndex) build(b *MapBlock) {
	idx.starts = make([]int, b.positionCount+1)
	total := 0
	for p := 0; p < b.positionCount; p++ {
		idx.starts[p] = total
		start, end := b.EntryRange(p)
		total += tableSize(end - start)
	}
	idx.starts[b.positionCount] = total
	idx.slots = make([]int32, total)

	for p := 0; p < b.positionCount; p++ {
		table := idx.slots[idx.starts[p]:idx.starts[p+1]]
		if len(table) == 0 {
			continue
		}
		mask := uint64(len(table) - 1)
		start, end := b.EntryRange(p)
	entries:
		for e := start; e < end; e++ {
			slot := HashPosition(b.keys, e) & mask
			for table[slot] != 0 {
				// Duplicate keys resolve to the first entry.
				if PositionsEqual(b.keys, int(table[slot]-1), b.keys, e) {
					continue entries
				}
				slot = (slot + 1) & mask
			}
			table[slot] = int32(e + 1)
		}
	}
}

func (idx *mapIndex) find(b *MapBlock, position int, key Block, keyPosition int) (int, bool) {
	table := idx.slots[idx.starts[position]:idx.starts[position+1]]
	if len(table) == 0 {
		return 0, false
	}
	mask := uint64(len(table) - 1)
	slot := HashPosition(key, keyPosition) & mask
	for table[slot] != 0 {
		e := int(table[slot] - 1)
		if PositionsEqual(b.keys, e, key, keyPosition) {
			return e, true
		}
		slot = (slot + 1) & mask
	}
	return 0, false
}

// tableSize returns a power of two at least twice n, or zero for n == 0.
func tableSize(n int) int {
	if n == 0 {
		return 0
	}
	size := 1
	for size < 2*n {
		size <<= 1
	}
	return size
}
