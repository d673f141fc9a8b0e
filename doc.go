// Package nebulablocks is the columnar data layer of a distributed query
// engine: immutable blocks of column values, their copy-free regions, and
// the wire format used to exchange them between tasks.
//
// # Layout
//
//   - pkg/block: the Block interface, every block variant and the encoding
//     registry (Serde) that writes and reads them
//   - pkg/slice: the byte sink and source contract used by block codecs
//   - pkg/page: pages of equal-length blocks, page compression, checksums and
//     page stream framing
//   - pkg/arrowconv: export of blocks to Apache Arrow arrays
//   - cmd/blockctl: a CLI that writes and inspects page streams
//
// # Quick Start
//
//	serde, _ := block.NewSerde()
//	ids, _ := block.NewLongBlock([]int64{1, 2, 3}, nil)
//	data, _ := serde.Encode(ids)
//	back, _ := serde.Decode(data)
//	fmt.Println(block.Equal(ids, back)) // true
//
// Regions share storage with their source block:
//
//	tail, _ := ids.Region(1, 2) // positions 1 and 2, no copy
//
// Configuration, logging, metrics and tracing live in pkg/config,
// pkg/logger, pkg/metrics and pkg/observability.
package nebulablocks
