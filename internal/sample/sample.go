// Package sample generates deterministic blocks covering every built-in
// encoding, for the CLI and for tests.
package sample

import (
	"fmt"
	"math/rand"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
)

// Channel names in the order Channels returns them.
var ChannelNames = []string{
	"id", "quantity", "flag", "small", "amount",
	"name", "tags", "attributes", "point", "region", "batch",
}

var regions = []string{"us-east", "us-west", "eu-central", "ap-south", "sa-east"}

// Generator produces pseudo-random channels from a fixed seed.
type Generator struct {
	rng      *rand.Rand
	nullRate float64
	next     int64
}

// New returns a generator seeded with seed. About one position in ten is
// null in every nullable channel.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), nullRate: 0.1}
}

// WithNullRate overrides the fraction of null positions.
func (g *Generator) WithNullRate(rate float64) *Generator {
	g.nullRate = rate
	return g
}

func (g *Generator) nulls(rows int) []bool {
	if g.nullRate <= 0 {
		return nil
	}
	nulls := make([]bool, rows)
	for i := range nulls {
		nulls[i] = g.rng.Float64() < g.nullRate
	}
	return nulls
}

// Channels returns one block per entry of ChannelNames, each with rows
// positions. IDs continue across calls.
func (g *Generator) Channels(rows int) ([]block.Block, error) {
	builders := []func(int) (block.Block, error){
		g.ids, g.quantities, g.flags, g.smalls, g.amounts,
		g.names, g.tags, g.attributes, g.points, g.regions, g.batch,
	}
	out := make([]block.Block, len(builders))
	for i, build := range builders {
		b, err := build(rows)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ChannelNames[i], err)
		}
		out[i] = b
	}
	return out, nil
}

func (g *Generator) ids(rows int) (block.Block, error) {
	values := make([]int64, rows)
	for i := range values {
		values[i] = g.next
		g.next++
	}
	return block.NewLongBlock(values, nil)
}

func (g *Generator) quantities(rows int) (block.Block, error) {
	values := make([]int32, rows)
	for i := range values {
		values[i] = g.rng.Int31n(1000)
	}
	return block.NewIntBlock(values, g.nulls(rows))
}

func (g *Generator) flags(rows int) (block.Block, error) {
	values := make([]int8, rows)
	for i := range values {
		values[i] = int8(g.rng.Intn(2))
	}
	return block.NewByteBlock(values, g.nulls(rows))
}

func (g *Generator) smalls(rows int) (block.Block, error) {
	values := make([]int16, rows)
	for i := range values {
		values[i] = int16(g.rng.Intn(1 << 15))
	}
	return block.NewShortBlock(values, g.nulls(rows))
}

func (g *Generator) amounts(rows int) (block.Block, error) {
	values := make([]block.Int128, rows)
	for i := range values {
		values[i] = block.Int128{g.rng.Int63n(8), g.rng.Int63()}
	}
	return block.NewInt128Block(values, g.nulls(rows))
}

func (g *Generator) names(rows int) (block.Block, error) {
	nulls := g.nulls(rows)
	values := make([][]byte, rows)
	for i := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		values[i] = []byte(fmt.Sprintf("user-%05d", g.rng.Intn(100000)))
	}
	return block.NewVariableWidthBlockFromValues(values), nil
}

func (g *Generator) tags(rows int) (block.Block, error) {
	nulls := g.nulls(rows)
	offsets := make([]int32, rows+1)
	var elements []int64
	for i := 0; i < rows; i++ {
		if nulls == nil || !nulls[i] {
			for n := g.rng.Intn(4); n > 0; n-- {
				elements = append(elements, g.rng.Int63n(100))
			}
		}
		offsets[i+1] = int32(len(elements))
	}
	if elements == nil {
		elements = []int64{}
	}
	el, err := block.NewLongBlock(elements, nil)
	if err != nil {
		return nil, err
	}
	return block.NewArrayBlock(offsets, nulls, el)
}

func (g *Generator) attributes(rows int) (block.Block, error) {
	nulls := g.nulls(rows)
	offsets := make([]int32, rows+1)
	var keys []string
	var values []int64
	for i := 0; i < rows; i++ {
		if nulls == nil || !nulls[i] {
			for k := 0; k < g.rng.Intn(3); k++ {
				keys = append(keys, fmt.Sprintf("k%d", k))
				values = append(values, g.rng.Int63n(1000))
			}
		}
		offsets[i+1] = int32(len(keys))
	}
	if values == nil {
		values = []int64{}
	}
	vb, err := block.NewLongBlock(values, nil)
	if err != nil {
		return nil, err
	}
	return block.NewMapBlock(offsets, nulls, block.NewVariableWidthBlockFromStrings(keys...), vb)
}

func (g *Generator) points(rows int) (block.Block, error) {
	xs := make([]int32, rows)
	ys := make([]int32, rows)
	for i := 0; i < rows; i++ {
		xs[i] = g.rng.Int31n(360) - 180
		ys[i] = g.rng.Int31n(180) - 90
	}
	x, err := block.NewIntBlock(xs, nil)
	if err != nil {
		return nil, err
	}
	y, err := block.NewIntBlock(ys, nil)
	if err != nil {
		return nil, err
	}
	return block.NewRowBlock(rows, g.nulls(rows), x, y)
}

func (g *Generator) regions(rows int) (block.Block, error) {
	ids := make([]int32, rows)
	for i := range ids {
		ids[i] = int32(g.rng.Intn(len(regions)))
	}
	return block.NewDictionaryBlock(ids, block.NewVariableWidthBlockFromStrings(regions...))
}

func (g *Generator) batch(rows int) (block.Block, error) {
	v, err := block.NewLongBlock([]int64{g.rng.Int63n(1 << 20)}, nil)
	if err != nil {
		return nil, err
	}
	return block.NewRunLengthBlock(v, rows)
}
