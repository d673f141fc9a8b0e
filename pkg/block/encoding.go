package block

import (
	"encoding/binary"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

func mismatch(b Block, tag string) error {
	return errors.Newf(errors.ErrorTypeInternal, "%s codec cannot write %T", tag, b).
		WithDetail("encoding", tag)
}

func writeInt32s(sink slice.Sink, values []int32) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	_, err := sink.Write(buf)
	return err
}

func readInt32s(src slice.Source, n int) ([]int32, error) {
	raw, err := src.ReadBytes(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}

// fixedEncoding writes [int32 positionCount][nulls][non-null values].
type fixedEncoding[T Fixed] struct {
	kind *fixedKind[T]
}

func (e fixedEncoding[T]) Name() string { return e.kind.name }

func (e fixedEncoding[T]) WriteBlock(_ BlockWriter, sink slice.Sink, b Block) error {
	fb, ok := b.(*FixedWidthBlock[T])
	if !ok {
		return mismatch(b, e.kind.name)
	}
	if err := sink.WriteInt32(int32(fb.positionCount)); err != nil {
		return err
	}
	if err := EncodeNulls(sink, fb); err != nil {
		return err
	}
	width := e.kind.width
	buf := make([]byte, fb.positionCount*width)
	n := 0
	for i := 0; i < fb.positionCount; i++ {
		if fb.IsNull(i) {
			continue
		}
		e.kind.put(buf[n:], fb.values[fb.arrayOffset+i])
		n += width
	}
	_, err := sink.Write(buf[:n])
	return err
}

func (e fixedEncoding[T]) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	positionCount, err := ReadPositionCount(r, src, 0)
	if err != nil {
		return nil, err
	}
	nulls, err := DecodeNulls(src, positionCount)
	if err != nil {
		return nil, err
	}
	nonNull := positionCount
	for _, n := range nulls {
		if n {
			nonNull--
		}
	}
	width := e.kind.width
	raw, err := src.ReadBytes(nonNull * width)
	if err != nil {
		return nil, err
	}
	values := make([]T, positionCount)
	j := 0
	for i := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		values[i] = e.kind.get(raw[j:])
		j += width
	}
	return &FixedWidthBlock[T]{
		kind:          e.kind,
		values:        values,
		nulls:         nulls,
		positionCount: positionCount,
	}, nil
}

// variableWidthEncoding writes [int32 positionCount][end offsets][nulls]
// [int32 totalBytes][bytes] with offsets rebased to the first value.
type variableWidthEncoding struct{}

func (variableWidthEncoding) Name() string { return VariableWidthEncoding }

func (variableWidthEncoding) WriteBlock(_ BlockWriter, sink slice.Sink, b Block) error {
	vb, ok := b.(*VariableWidthBlock)
	if !ok {
		return mismatch(b, VariableWidthEncoding)
	}
	if err := sink.WriteInt32(int32(vb.positionCount)); err != nil {
		return err
	}
	start, end := vb.Range()
	ends := make([]int32, vb.positionCount)
	for i := range ends {
		ends[i] = vb.offsets[vb.offsetBase+i+1] - int32(start)
	}
	if err := writeInt32s(sink, ends); err != nil {
		return err
	}
	if err := EncodeNulls(sink, vb); err != nil {
		return err
	}
	if err := sink.WriteInt32(int32(end - start)); err != nil {
		return err
	}
	_, err := sink.Write(vb.data[start:end])
	return err
}

func (variableWidthEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	positionCount, err := ReadPositionCount(r, src, 4)
	if err != nil {
		return nil, err
	}
	ends, err := readInt32s(src, positionCount)
	if err != nil {
		return nil, err
	}
	nulls, err := DecodeNulls(src, positionCount)
	if err != nil {
		return nil, err
	}
	total, err := src.ReadInt32()
	if err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, errors.Corrupt("negative byte count %d", total)
	}
	last := int32(0)
	if positionCount > 0 {
		last = ends[positionCount-1]
	}
	if last != total {
		return nil, errors.Corrupt("last offset %d does not match byte count %d", last, total)
	}
	data, err := src.ReadBytes(int(total))
	if err != nil {
		return nil, err
	}
	offsets := make([]int32, positionCount+1)
	copy(offsets[1:], ends)
	vb, err := NewVariableWidthBlock(data, offsets, nulls)
	if err != nil {
		return nil, asCorrupt(err, VariableWidthEncoding)
	}
	return vb, nil
}

// writeRebasedOffsets writes positionCount followed by the window's
// positionCount+1 offsets shifted so the first is zero.
func writeRebasedOffsets(sink slice.Sink, offsets []int32, base, positionCount int) error {
	if err := sink.WriteInt32(int32(positionCount)); err != nil {
		return err
	}
	start := offsets[base]
	rebased := make([]int32, positionCount+1)
	for i := range rebased {
		rebased[i] = offsets[base+i] - start
	}
	return writeInt32s(sink, rebased)
}

// checkFlatOffsets requires decoded offsets to span the whole child from
// zero, which is what writeRebasedOffsets produces.
func checkFlatOffsets(offsets []int32, childCount int, tag string) error {
	first, last := offsets[0], offsets[len(offsets)-1]
	if first != 0 {
		return errors.Corrupt("first offset %d is not zero", first).
			WithDetail("encoding", tag)
	}
	if int(last) != childCount {
		return errors.Corrupt("last offset %d does not match child size %d", last, childCount).
			WithDetail("encoding", tag)
	}
	return nil
}

// arrayEncoding writes [elements][int32 positionCount][offsets][nulls].
// Only the element range the array references is written and offsets are
// rebased to start at zero.
type arrayEncoding struct{}

func (arrayEncoding) Name() string { return ArrayEncoding }

func (arrayEncoding) WriteBlock(w BlockWriter, sink slice.Sink, b Block) error {
	ab, ok := b.(*ArrayBlock)
	if !ok {
		return mismatch(b, ArrayEncoding)
	}
	if err := w.WriteBlock(sink, ab.Elements()); err != nil {
		return err
	}
	if err := writeRebasedOffsets(sink, ab.offsets, ab.offsetBase, ab.positionCount); err != nil {
		return err
	}
	return EncodeNulls(sink, ab)
}

func (arrayEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	elements, err := r.ReadBlock(src)
	if err != nil {
		return nil, err
	}
	positionCount, err := ReadPositionCount(r, src, 4)
	if err != nil {
		return nil, err
	}
	offsets, err := readInt32s(src, positionCount+1)
	if err != nil {
		return nil, err
	}
	nulls, err := DecodeNulls(src, positionCount)
	if err != nil {
		return nil, err
	}
	if err := checkFlatOffsets(offsets, elements.PositionCount(), ArrayEncoding); err != nil {
		return nil, err
	}
	ab, err := NewArrayBlock(offsets, nulls, elements)
	if err != nil {
		return nil, asCorrupt(err, ArrayEncoding)
	}
	return ab, nil
}

// mapEncoding writes [keys][values][int32 positionCount][offsets][nulls],
// flattening keys and values to the referenced entry range.
type mapEncoding struct{}

func (mapEncoding) Name() string { return MapEncoding }

func (mapEncoding) WriteBlock(w BlockWriter, sink slice.Sink, b Block) error {
	mb, ok := b.(*MapBlock)
	if !ok {
		return mismatch(b, MapEncoding)
	}
	if err := w.WriteBlock(sink, mb.Keys()); err != nil {
		return err
	}
	if err := w.WriteBlock(sink, mb.Values()); err != nil {
		return err
	}
	if err := writeRebasedOffsets(sink, mb.offsets, mb.offsetBase, mb.positionCount); err != nil {
		return err
	}
	return EncodeNulls(sink, mb)
}

func (mapEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	keys, err := r.ReadBlock(src)
	if err != nil {
		return nil, err
	}
	values, err := r.ReadBlock(src)
	if err != nil {
		return nil, err
	}
	positionCount, err := ReadPositionCount(r, src, 4)
	if err != nil {
		return nil, err
	}
	offsets, err := readInt32s(src, positionCount+1)
	if err != nil {
		return nil, err
	}
	nulls, err := DecodeNulls(src, positionCount)
	if err != nil {
		return nil, err
	}
	if err := checkFlatOffsets(offsets, keys.PositionCount(), MapEncoding); err != nil {
		return nil, err
	}
	mb, err := NewMapBlock(offsets, nulls, keys, values)
	if err != nil {
		return nil, asCorrupt(err, MapEncoding)
	}
	return mb, nil
}

// rowEncoding writes [int32 fieldCount][fields][int32 positionCount][nulls].
type rowEncoding struct{}

func (rowEncoding) Name() string { return RowEncoding }

func (rowEncoding) WriteBlock(w BlockWriter, sink slice.Sink, b Block) error {
	rb, ok := b.(*RowBlock)
	if !ok {
		return mismatch(b, RowEncoding)
	}
	if err := sink.WriteInt32(int32(len(rb.fields))); err != nil {
		return err
	}
	for _, f := range rb.fields {
		if err := w.WriteBlock(sink, f); err != nil {
			return err
		}
	}
	if err := sink.WriteInt32(int32(rb.positionCount)); err != nil {
		return err
	}
	return EncodeNulls(sink, rb)
}

func (rowEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	// Every field envelope takes at least 5 bytes.
	fieldCount, err := ReadPositionCount(r, src, 5)
	if err != nil {
		return nil, err
	}
	fields := make([]Block, fieldCount)
	for i := range fields {
		if fields[i], err = r.ReadBlock(src); err != nil {
			return nil, err
		}
	}
	positionCount, err := ReadPositionCount(r, src, 0)
	if err != nil {
		return nil, err
	}
	nulls, err := DecodeNulls(src, positionCount)
	if err != nil {
		return nil, err
	}
	rb, err := NewRowBlock(positionCount, nulls, fields...)
	if err != nil {
		return nil, asCorrupt(err, RowEncoding)
	}
	return rb, nil
}

// dictionaryEncoding writes [dictionary][int32 positionCount][ids]. The
// dictionary is compacted to the referenced entries first.
type dictionaryEncoding struct{}

func (dictionaryEncoding) Name() string { return DictionaryEncoding }

func (dictionaryEncoding) WriteBlock(w BlockWriter, sink slice.Sink, b Block) error {
	db, ok := b.(*DictionaryBlock)
	if !ok {
		return mismatch(b, DictionaryEncoding)
	}
	compact, err := db.Compact()
	if err != nil {
		return err
	}
	if err := w.WriteBlock(sink, compact.dictionary); err != nil {
		return err
	}
	if err := sink.WriteInt32(int32(compact.positionCount)); err != nil {
		return err
	}
	return writeInt32s(sink, compact.ids[compact.idsOffset:compact.idsOffset+compact.positionCount])
}

func (dictionaryEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	dictionary, err := r.ReadBlock(src)
	if err != nil {
		return nil, err
	}
	positionCount, err := ReadPositionCount(r, src, 4)
	if err != nil {
		return nil, err
	}
	ids, err := readInt32s(src, positionCount)
	if err != nil {
		return nil, err
	}
	db, err := NewDictionaryBlock(ids, dictionary)
	if err != nil {
		return nil, asCorrupt(err, DictionaryEncoding)
	}
	return db, nil
}

// runLengthEncoding writes [value][int32 positionCount].
type runLengthEncoding struct{}

func (runLengthEncoding) Name() string { return RunLengthEncoding }

func (runLengthEncoding) WriteBlock(w BlockWriter, sink slice.Sink, b Block) error {
	rb, ok := b.(*RunLengthBlock)
	if !ok {
		return mismatch(b, RunLengthEncoding)
	}
	if err := w.WriteBlock(sink, rb.value); err != nil {
		return err
	}
	return sink.WriteInt32(int32(rb.positionCount))
}

func (runLengthEncoding) ReadBlock(r BlockReader, src slice.Source) (Block, error) {
	value, err := r.ReadBlock(src)
	if err != nil {
		return nil, err
	}
	positionCount, err := ReadPositionCount(r, src, 0)
	if err != nil {
		return nil, err
	}
	rb, err := NewRunLengthBlock(value, positionCount)
	if err != nil {
		return nil, asCorrupt(err, RunLengthEncoding)
	}
	return rb, nil
}
