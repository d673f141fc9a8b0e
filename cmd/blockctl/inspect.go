package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/nebula-blocks/pkg/arrowconv"
	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/json"
	"github.com/ajitpratap0/nebula-blocks/pkg/mmap"
	"github.com/ajitpratap0/nebula-blocks/pkg/page"
)

type inspectOptions struct {
	json   bool
	limit  int
	schema bool
}

// pageReport is the JSON form of one decoded page.
type pageReport struct {
	Page              int             `json:"page"`
	Positions         int             `json:"positions"`
	Compressed        bool            `json:"compressed"`
	Checksummed       bool            `json:"checksummed"`
	UncompressedBytes int             `json:"uncompressed_bytes"`
	WireBytes         int             `json:"wire_bytes"`
	Channels          []channelReport `json:"channels"`
}

type channelReport struct {
	Index     int    `json:"index"`
	Encoding  string `json:"encoding"`
	Positions int    `json:"positions"`
	Bytes     int64  `json:"bytes"`
	Values    []any  `json:"values"`
}

func newInspectCmd(a *app) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Decode a page stream and describe every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print pages as a JSON array with decoded values")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Values printed per channel with --json")
	cmd.Flags().BoolVar(&opts.schema, "schema", false, "Print the Arrow schema of each page")
	return cmd
}

func (a *app) inspect(ctx context.Context, path string, opts *inspectOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	codec, err := a.codec()
	if err != nil {
		return err
	}

	r, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	sr, err := page.NewStreamReader(bytes.NewReader(r.Bytes()), codec)
	if err != nil {
		return err
	}

	var enc *json.StreamingEncoder
	if opts.json {
		enc = json.NewStreamingEncoder(a.out, true)
		enc.SetPretty("  ")
	} else {
		fmt.Fprintf(a.out, "stream %s: compression %s\n", path, sr.Algorithm())
	}

	for i := 0; ; i++ {
		sp, err := sr.NextSerialized()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		p, err := sr.Deserialize(ctx, sp)
		if err != nil {
			return err
		}

		report := describe(i, sp, p, opts.limit)
		if opts.json {
			if err := enc.Encode(report); err != nil {
				return err
			}
			continue
		}
		printReport(a.out, report)
		if opts.schema {
			if err := printSchema(a.out, p); err != nil {
				return err
			}
		}
	}

	if opts.json {
		return enc.Close()
	}
	return nil
}

func describe(index int, sp *page.SerializedPage, p *page.Page, limit int) pageReport {
	report := pageReport{
		Page:              index,
		Positions:         p.PositionCount(),
		Compressed:        sp.Markers.Has(page.Compressed),
		Checksummed:       sp.Markers.Has(page.Checksummed),
		UncompressedBytes: sp.UncompressedSize,
		WireBytes:         sp.SizeOnWire(),
		Channels:          make([]channelReport, p.ChannelCount()),
	}
	for ch := range report.Channels {
		b := p.Channel(ch)
		n := max(0, min(limit, b.PositionCount()))
		values := make([]any, n)
		for pos := 0; pos < n; pos++ {
			values[pos] = jsonValue(block.ValueAt(b, pos))
		}
		report.Channels[ch] = channelReport{
			Index:     ch,
			Encoding:  b.EncodingName(),
			Positions: b.PositionCount(),
			Bytes:     b.SizeInBytes(),
			Values:    values,
		}
	}
	return report
}

// jsonValue turns a materialized block value into something that reads well
// as JSON: bytes become strings and map entries become key/value objects.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case block.Row:
		return jsonValue([]any(t))
	case []block.MapEntry:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = map[string]any{"key": jsonValue(e.Key), "value": jsonValue(e.Value)}
		}
		return out
	default:
		return v
	}
}

func printReport(w io.Writer, r pageReport) {
	markers := "plain"
	if r.Compressed {
		markers = "compressed"
	}
	if r.Checksummed {
		markers += ", checksummed"
	}
	fmt.Fprintf(w, "page %d: %d positions, %d channels, %d bytes on wire, %d uncompressed (%s)\n",
		r.Page, r.Positions, len(r.Channels), r.WireBytes, r.UncompressedBytes, markers)
	for _, c := range r.Channels {
		fmt.Fprintf(w, "  [%d] %-15s %d positions, %d bytes\n", c.Index, c.Encoding, c.Positions, c.Bytes)
	}
}

func printSchema(w io.Writer, p *page.Page) error {
	rec, err := arrowconv.ToRecord(memory.DefaultAllocator, p.Channels())
	if err != nil {
		return err
	}
	defer rec.Release()
	fmt.Fprintf(w, "  arrow %s\n", rec.Schema())
	return nil
}
