package pipeline

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tachyon-genomics/tachyon/internal/schema"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

type sliceProducer struct {
	sch     *schema.Schema
	records []schema.Record
	pos     int
}

func (p *sliceProducer) Schema() *schema.Schema { return p.sch }

func (p *sliceProducer) Next() (schema.Record, bool, error) {
	if p.pos >= len(p.records) {
		return schema.Record{}, false, nil
	}
	r := p.records[p.pos]
	p.pos++
	return r, true, nil
}

func twoContigSchema() *schema.Schema {
	return &schema.Schema{
		Contigs: []schema.ContigInfo{{Name: "chr1", Length: 1_000_000}, {Name: "chr2", Length: 500_000}},
	}
}

func rec(contigID uint32, pos uint32) schema.Record {
	return schema.Record{ContigID: contigID, Position: pos, Alleles: [][]byte{[]byte("A"), []byte("G")}}
}

func TestWriter_WritesOneBlockPerContigRun(t *testing.T) {
	p := &sliceProducer{
		sch: twoContigSchema(),
		records: []schema.Record{
			rec(0, 10), rec(0, 20), rec(0, 30),
			rec(1, 5), rec(1, 15),
		},
	}
	var buf bytes.Buffer
	idx := vindex.NewIndex()
	wr := NewWriter(Options{Threads: 2, CompressionLevel: 6})

	stats, err := wr.Run(context.Background(), p, &buf, 0, idx, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.BlocksWritten)
	require.Equal(t, uint64(5), stats.RecordsWritten)
	require.NotZero(t, stats.BytesWritten)

	got0 := idx.Lookup(0, 0, 1_000_000)
	got1 := idx.Lookup(1, 0, 1_000_000)
	require.Len(t, got0, 1)
	require.Len(t, got1, 1)
}

func TestWriter_InvokesCheckpointCallback(t *testing.T) {
	var records []schema.Record
	for i := 0; i < 10; i++ {
		records = append(records, rec(0, uint32(i)))
	}
	p := &sliceProducer{sch: twoContigSchema(), records: records}
	var buf bytes.Buffer
	idx := vindex.NewIndex()
	wr := NewWriter(Options{Threads: 1, CompressionLevel: 0, BatchRecords: 3, CheckpointRecords: 3})

	var checkpoints []ImportStats
	_, err := wr.Run(context.Background(), p, &buf, 0, idx, func(s ImportStats) {
		checkpoints = append(checkpoints, s)
	})
	require.NoError(t, err)
	require.NotEmpty(t, checkpoints)
	for _, c := range checkpoints {
		require.True(t, c.RecordsWritten%3 == 0 || c.RecordsWritten == 10)
	}
}

type bufferFetcher struct {
	data []byte
}

func (f *bufferFetcher) FetchBlock(ctx context.Context, offset, length uint64) (io.Reader, error) {
	return bytes.NewReader(f.data[offset : offset+length]), nil
}

func TestReader_DecodesBlocksInEntryOrder(t *testing.T) {
	p := &sliceProducer{
		sch:     twoContigSchema(),
		records: []schema.Record{rec(0, 1), rec(1, 2)},
	}
	var buf bytes.Buffer
	idx := vindex.NewIndex()
	wr := NewWriter(Options{Threads: 1, CompressionLevel: 0})
	_, err := wr.Run(context.Background(), p, &buf, 0, idx, nil)
	require.NoError(t, err)

	meta := idx.Meta()
	require.Len(t, meta, 2)

	entries := vindexEntryFromMeta(meta)
	fetcher := &bufferFetcher{data: buf.Bytes()}
	rd := NewReader(2, 0)
	decoded, err := rd.DecodeBlocks(context.Background(), fetcher, entries)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, uint32(1), decoded[0][0].Position)
	require.Equal(t, uint32(2), decoded[1][0].Position)
}

func vindexEntryFromMeta(meta vindex.MetaIndex) []vindex.IndexEntry {
	out := make([]vindex.IndexEntry, len(meta))
	for i, m := range meta {
		out[i] = vindex.IndexEntry{
			BlockID:    m.FirstBlock,
			ContigID:   m.ContigID,
			ByteOffset: m.ByteOffset,
			ByteLength: m.ByteLength,
		}
	}
	return out
}
