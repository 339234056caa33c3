package archivefmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tachyon-genomics/tachyon/internal/schema"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
	"github.com/tachyon-genomics/tachyon/internal/vblock"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Samples: []string{"NA001"},
		Contigs: []schema.ContigInfo{{Name: "chr1", Length: 1_000_000}},
		Info: []schema.FieldDef{
			{Key: 1, Name: "DP", Type: schema.KindInt, Arity: 1},
		},
		Filter: []schema.FieldDef{{Key: 0, Name: "PASS"}},
	}
}

func TestHeader_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf))
	v, err := ReadHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, v)
}

func TestHeader_BadMagicIsFormatMagicMismatch(t *testing.T) {
	buf := bytes.NewBufferString("XXXX\x01\x00\x00")
	_, err := ReadHeader(buf)
	require.Error(t, err)
	require.Equal(t, tachyonerr.FormatMagicMismatch, tachyonerr.Classify(err))
}

func TestGlobalHeader_RoundTrips(t *testing.T) {
	sch := testSchema()
	var buf bytes.Buffer
	require.NoError(t, WriteGlobalHeader(&buf, NewSchema(sch)))

	got, err := ReadGlobalHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, sch.Samples, got.Samples)
	require.Equal(t, sch.Contigs, got.Contigs)
	fd, ok := got.ResolveKey(1)
	require.True(t, ok)
	require.Equal(t, "DP", fd.Name)
}

func TestBlock_RoundTrips(t *testing.T) {
	sch := testSchema()
	b := vblock.NewBuilder(sch, 0)
	require.NoError(t, b.Add(schema.Record{
		ContigID: 0,
		Position: 100,
		Alleles:  [][]byte{[]byte("A"), []byte("G")},
		Info:     map[uint32]schema.TypedValue{1: {Kind: schema.KindInt, Ints: []int64{10}}},
	}))
	require.NoError(t, b.Add(schema.Record{
		ContigID: 0,
		Position: 200,
		Alleles:  [][]byte{[]byte("A"), []byte("T")},
		Info:     map[uint32]schema.TypedValue{1: {Kind: schema.KindInt, Ints: []int64{20}}},
	}))
	eb, err := b.Finalize(6)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBlock(&buf, eb))

	got, err := ReadBlock(&buf)
	require.NoError(t, err)
	require.Equal(t, eb.NVariants, got.NVariants)
	require.Equal(t, eb.MinPos, got.MinPos)
	require.Equal(t, eb.MaxPos, got.MaxPos)
	require.Equal(t, eb.ContigID, got.ContigID)

	records, err := vblock.Decode(got, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(10), records[0].Info[1].Ints[0])
	require.Equal(t, int64(20), records[1].Info[1].Ints[0])
}

func TestBlock_TamperedSentinelIsDetected(t *testing.T) {
	sch := testSchema()
	b := vblock.NewBuilder(sch, 0)
	require.NoError(t, b.Add(schema.Record{
		ContigID: 0,
		Position: 1,
		Alleles:  [][]byte{[]byte("A"), []byte("C")},
	}))
	eb, err := b.Finalize(0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBlock(&buf, eb))
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	_, err = ReadBlock(bytes.NewReader(raw))
	require.Error(t, err)
	require.Equal(t, tachyonerr.BlockSentinelMismatch, tachyonerr.Classify(err))
}

func TestFooter_RoundTrips(t *testing.T) {
	idx := vindex.NewIndex()
	require.NoError(t, idx.AddContig(0, 1_000_000))
	idx.Insert(vindex.IndexEntry{BlockID: 1, ContigID: 0, MinPos: 0, MaxPos: 100, NVariants: 2, ByteOffset: 16, ByteLength: 200})
	idx.Insert(vindex.IndexEntry{BlockID: 2, ContigID: 0, MinPos: 100, MaxPos: 300, NVariants: 3, ByteOffset: 216, ByteLength: 250})

	var buf bytes.Buffer
	require.NoError(t, WriteFooter(&buf, idx, 16))

	raw := buf.Bytes()
	tailOffset := len(raw) - 8 - len(Magic)
	require.Equal(t, Magic, [4]byte(raw[len(raw)-len(Magic):]))

	got, err := ReadFooter(raw[:tailOffset])
	require.NoError(t, err)
	lookup := got.Lookup(0, 50, 150)
	require.Equal(t, []uint32{1, 2}, lookup)
}
