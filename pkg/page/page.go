// Package page groups equal-length blocks into pages, the unit exchanged
// between tasks, and serializes them with optional compression and
// checksums.
package page

import (
	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

// Page is an ordered set of channels that all have the same position count.
// A page without channels still carries a position count.
type Page struct {
	positionCount int
	blocks        []block.Block
}

// NewPage builds a page from blocks. Every block must have the same position
// count. With no blocks the page is empty.
func NewPage(blocks ...block.Block) (*Page, error) {
	n := 0
	if len(blocks) > 0 {
		n = blocks[0].PositionCount()
	}
	return NewPageWithPositionCount(n, blocks...)
}

// NewPageWithPositionCount builds a page of positionCount rows. It is the
// only way to build a page with positions but no channels.
func NewPageWithPositionCount(positionCount int, blocks ...block.Block) (*Page, error) {
	if positionCount < 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "negative position count %d", positionCount)
	}
	for i, b := range blocks {
		if b == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "channel %d is nil", i)
		}
		if b.PositionCount() != positionCount {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"channel %d has %d positions, page has %d", i, b.PositionCount(), positionCount).
				WithDetail("channel", i)
		}
	}
	return &Page{
		positionCount: positionCount,
		blocks:        append([]block.Block(nil), blocks...),
	}, nil
}

// PositionCount returns the number of rows.
func (p *Page) PositionCount() int { return p.positionCount }

// ChannelCount returns the number of columns.
func (p *Page) ChannelCount() int { return len(p.blocks) }

// Channel returns column i. It panics when i is out of range.
func (p *Page) Channel(i int) block.Block {
	if i < 0 || i >= len(p.blocks) {
		panic(errors.OutOfRange("channel %d outside [0, %d)", i, len(p.blocks)))
	}
	return p.blocks[i]
}

// Channels returns a copy of the channel list.
func (p *Page) Channels() []block.Block {
	return append([]block.Block(nil), p.blocks...)
}

// Region returns rows [offset, offset+length) of every channel without
// copying.
func (p *Page) Region(offset, length int) (*Page, error) {
	if offset < 0 || length < 0 || offset > p.positionCount-length {
		return nil, errors.OutOfRange("region [%d, %d+%d) outside page of %d positions",
			offset, offset, length, p.positionCount)
	}
	blocks := make([]block.Block, len(p.blocks))
	for i, b := range p.blocks {
		r, err := b.Region(offset, length)
		if err != nil {
			return nil, err
		}
		blocks[i] = r
	}
	return &Page{positionCount: length, blocks: blocks}, nil
}

// SizeInBytes sums the logical size of every channel.
func (p *Page) SizeInBytes() int64 {
	var size int64
	for _, b := range p.blocks {
		size += b.SizeInBytes()
	}
	return size
}

// EncodingNames lists the encoding tag of each channel.
func (p *Page) EncodingNames() []string {
	names := make([]string, len(p.blocks))
	for i, b := range p.blocks {
		names[i] = b.EncodingName()
	}
	return names
}
