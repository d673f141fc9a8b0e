package page

import (
	"math"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/slice"
)

// Markers flags how a serialized page body was produced.
type Markers byte

const (
	// Compressed means Payload must be decompressed before decoding.
	Compressed Markers = 1 << 0
	// Checksummed means Checksum holds the XXH64 of the uncompressed body.
	Checksummed Markers = 1 << 1

	knownMarkers = Compressed | Checksummed
)

// Has reports whether every bit of m2 is set.
func (m Markers) Has(m2 Markers) bool { return m&m2 == m2 }

// SerializedPage is a page in its wire form.
type SerializedPage struct {
	PositionCount    int
	Markers          Markers
	UncompressedSize int
	Checksum         uint64
	Payload          []byte
}

// SizeOnWire is the number of payload bytes following the header.
func (sp *SerializedPage) SizeOnWire() int { return len(sp.Payload) }

// WriteTo writes the header and payload:
// [int32 positionCount][byte markers][int32 uncompressedSize][int32 sizeOnWire][int64 checksum if checksummed][payload].
func (sp *SerializedPage) WriteTo(sink slice.Sink) error {
	if err := sink.WriteInt32(int32(sp.PositionCount)); err != nil {
		return err
	}
	if err := sink.WriteByte(byte(sp.Markers)); err != nil {
		return err
	}
	if err := sink.WriteInt32(int32(sp.UncompressedSize)); err != nil {
		return err
	}
	if err := sink.WriteInt32(int32(len(sp.Payload))); err != nil {
		return err
	}
	if sp.Markers.Has(Checksummed) {
		if err := slice.WriteInt64(sink, int64(sp.Checksum)); err != nil {
			return err
		}
	}
	_, err := sink.Write(sp.Payload)
	return err
}

// ReadSerializedPage reads one header and payload from src.
func ReadSerializedPage(src slice.Source) (*SerializedPage, error) {
	return readSerializedPage(src, math.MaxInt32)
}

// readSerializedPage rejects headers declaring more than limit bytes before
// reading the payload.
func readSerializedPage(src slice.Source, limit int) (*SerializedPage, error) {
	positions, err := src.ReadInt32()
	if err != nil {
		return nil, err
	}
	if positions < 0 {
		return nil, errors.Corrupt("negative page position count %d", positions)
	}
	markers, err := src.ReadByte()
	if err != nil {
		return nil, err
	}
	if Markers(markers)&^knownMarkers != 0 {
		return nil, errors.Corrupt("unknown page markers 0x%02x", markers)
	}
	uncompressed, err := src.ReadInt32()
	if err != nil {
		return nil, err
	}
	if uncompressed < 0 {
		return nil, errors.Corrupt("negative uncompressed page size %d", uncompressed)
	}
	onWire, err := src.ReadInt32()
	if err != nil {
		return nil, err
	}
	if onWire < 0 {
		return nil, errors.Corrupt("negative page size on wire %d", onWire)
	}
	if int(uncompressed) > limit || int(onWire) > limit {
		return nil, errors.Corrupt("page of %d bytes (%d on wire) exceeds limit %d", uncompressed, onWire, limit).
			WithDetail("limit", limit)
	}
	sp := &SerializedPage{
		PositionCount:    int(positions),
		Markers:          Markers(markers),
		UncompressedSize: int(uncompressed),
	}
	if sp.Markers.Has(Checksummed) {
		sum, err := slice.ReadInt64(src)
		if err != nil {
			return nil, err
		}
		sp.Checksum = uint64(sum)
	}
	if sized, ok := src.(slice.Sized); ok && int(onWire) > sized.Remaining() {
		return nil, errors.Newf(errors.ErrorTypeTruncatedInput,
			"page payload of %d bytes, %d remaining", onWire, sized.Remaining())
	}
	if sp.Payload, err = src.ReadBytes(int(onWire)); err != nil {
		return nil, err
	}
	return sp, nil
}
