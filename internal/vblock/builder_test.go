package vblock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tachyon-genomics/tachyon/internal/schema"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

func testSchema(nSamples int) *schema.Schema {
	samples := make([]string, nSamples)
	for i := range samples {
		samples[i] = string(rune('A' + i))
	}
	return &schema.Schema{
		Samples: samples,
		Contigs: []schema.ContigInfo{{Name: "chr1", Length: 1_000_000}},
		Info: []schema.FieldDef{
			{Key: 1, Name: "DP", Type: schema.KindInt, Arity: 1},
		},
		Format: []schema.FieldDef{
			{Key: 100, Name: "GQ", Type: schema.KindInt, Arity: 1},
		},
	}
}

func simpleRecord(pos uint32, dp int64) schema.Record {
	return schema.Record{
		ContigID: 0,
		Position: pos,
		Alleles:  [][]byte{[]byte("A"), []byte("G")},
		Info:     map[uint32]schema.TypedValue{1: {Kind: schema.KindInt, Ints: []int64{dp}}},
	}
}

// TestRoundTrip_BasicRecordsNoGenotypes builds and decodes a small block
// with only base columns and a sparse INFO field, no samples.
func TestRoundTrip_BasicRecordsNoGenotypes(t *testing.T) {
	sch := testSchema(0)
	b := NewBuilder(sch, 0)
	require.NoError(t, b.Add(simpleRecord(100, 10)))
	require.NoError(t, b.Add(simpleRecord(200, 20)))

	eb, err := b.Finalize(6)
	require.NoError(t, err)
	require.Equal(t, 2, eb.NVariants)
	require.Equal(t, uint32(100), eb.MinPos)
	require.Equal(t, uint32(200), eb.MaxPos)

	records, err := Decode(eb, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint32(100), records[0].Position)
	require.Equal(t, uint32(200), records[1].Position)
	require.Equal(t, int64(10), records[0].Info[1].Ints[0])
	require.Equal(t, int64(20), records[1].Info[1].Ints[0])
}

// Scenario 4 of spec.md §8: every record in the block shares the same
// INFO pattern and the same INFO value, so the container collapses via
// FinalizeUniformity; decode must still reproduce the per-record value.
func TestScenario4_UniformInfoContainerRoundTrips(t *testing.T) {
	sch := testSchema(0)
	b := NewBuilder(sch, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Add(simpleRecord(uint32(100+i), 30)))
	}
	eb, err := b.Finalize(6)
	require.NoError(t, err)
	require.True(t, eb.Info[0].Uniform())

	records, err := Decode(eb, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, r := range records {
		require.Equal(t, int64(30), r.Info[1].Ints[0])
	}
}

// TestRoundTrip_DiploidBiallelicGenotypes exercises the permutation +
// RLE-diploid-biallelic encode/decode path end to end through a block.
func TestRoundTrip_DiploidBiallelicGenotypes(t *testing.T) {
	sch := testSchema(2)
	b := NewBuilder(sch, 0)
	r := simpleRecord(100, 5)
	r.Genotypes = &schema.GenotypeRow{
		Ploidy: 2,
		Calls:  [][]int{{0, 1}, {1, 1}},
		Phased: []bool{true, true},
	}
	require.NoError(t, b.Add(r))

	eb, err := b.Finalize(6)
	require.NoError(t, err)

	records, err := Decode(eb, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Genotypes)
	require.Equal(t, [][]int{{0, 1}, {1, 1}}, records[0].Genotypes.Calls)
	require.Equal(t, []bool{true, true}, records[0].Genotypes.Phased)
}

// Scenario 6 of spec.md §8: a corrupted genotype container in one block
// fails decode with ChecksumMismatch while a sibling block decodes fine.
func TestScenario6_CorruptedGenotypeContainerFailsChecksumOnly(t *testing.T) {
	buildOneGenotypeBlock := func() *EncodedBlock {
		sch := testSchema(2)
		b := NewBuilder(sch, 0)
		r := simpleRecord(100, 5)
		r.Genotypes = &schema.GenotypeRow{
			Ploidy: 2,
			Calls:  [][]int{{0, 1}, {1, 1}},
			Phased: []bool{true, true},
		}
		require.NoError(t, b.Add(r))
		eb, err := b.Finalize(0) // uncompressed: corruption below must surface as a checksum failure, not a codec error
		require.NoError(t, err)
		return eb
	}

	goodBlock := buildOneGenotypeBlock()
	badBlock := buildOneGenotypeBlock()

	gtCol := gtBiallelicCol(0) // Width8
	data := badBlock.Base[gtCol].Data()
	require.NotEmpty(t, data)
	data[0] ^= 0xFF

	_, err := Decode(badBlock, 2)
	require.Error(t, err)
	require.Equal(t, tachyonerr.ChecksumMismatch, tachyonerr.Classify(err))

	records, err := Decode(goodBlock, 2)
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 1}, {1, 1}}, records[0].Genotypes.Calls)
}

func TestBuilder_RejectsWrongContig(t *testing.T) {
	sch := testSchema(0)
	b := NewBuilder(sch, 0)
	err := b.Add(schema.Record{ContigID: 1, Alleles: [][]byte{[]byte("A"), []byte("T")}})
	require.Error(t, err)
	require.Equal(t, tachyonerr.FormatIncompatible, tachyonerr.Classify(err))
}
