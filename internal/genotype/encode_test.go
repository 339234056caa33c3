package genotype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 1 of spec.md §8: two samples, one diploid biallelic record
// `0|1 1|1`. Expect the RLE diploid biallelic family at width 8, two runs
// (1, {0,1}, phase=1) and (1, {1,1}, phase=1) after permutation [0,1], with
// PPA bijective and exact decode round trip.
func TestScenario1_TwoSampleDiploidBiallelic(t *testing.T) {
	rec := RecordCalls{Ploidy: 2, NAlleles: 2, Calls: [][]int{{0, 1}, {1, 1}}}
	ppa := Build(2, []RecordCalls{rec})
	require.True(t, ppa.IsBijection(2))
	require.Equal(t, PPA{0, 1}, ppa)

	permuted := Permute(rec.Calls, ppa)
	samples := []SampleGT{
		{Alleles: permuted[0], Phased: true},
		{Alleles: permuted[1], Phased: true},
	}
	res, err := EncodeRecord(samples, 2, 2)
	require.NoError(t, err)
	require.Equal(t, FamilyRLEDiploidBiallelic, res.Family)
	require.Equal(t, Width8, res.Width)
	require.Equal(t, 2, res.NumRuns)

	decoded, err := DecodeRecord(res.Family, res.Width, res.Bytes, res.NumRuns, 2, 2, 2)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i, s := range decoded {
		require.Equal(t, samples[i].Alleles, s.Alleles)
		require.Equal(t, samples[i].Phased, s.Phased)
	}
}

// Scenario 3 of spec.md §8: single record, 5 alleles, diploid, no missing.
// shift = ceil(log2(7)) = 3. Expect RLE diploid n-allelic family; decoded
// allele indices match input.
func TestScenario3_FiveAlleleDiploidNAllelic(t *testing.T) {
	samples := []SampleGT{
		{Alleles: []int{0, 4}, Phased: false},
		{Alleles: []int{2, 3}, Phased: true},
		{Alleles: []int{2, 3}, Phased: true},
	}
	res, err := EncodeRecord(samples, 2, 5)
	require.NoError(t, err)
	require.Equal(t, FamilyRLEDiploidNAllelic, res.Family)
	require.Equal(t, alleleShift(FamilyRLEDiploidNAllelic, 5), 3)
	require.Equal(t, 2, res.NumRuns)

	decoded, err := DecodeRecord(res.Family, res.Width, res.Bytes, res.NumRuns, 2, 5, 3)
	require.NoError(t, err)
	for i, s := range decoded {
		require.Equal(t, samples[i].Alleles, s.Alleles)
	}
}

func TestEncodeDecodeNPloid(t *testing.T) {
	samples := []SampleGT{
		{Alleles: []int{0, 0, 1}},
		{Alleles: []int{0, 0, 1}},
		{Alleles: []int{1, MissingAllele, EOVAllele}},
	}
	res, err := EncodeRecord(samples, 3, 2)
	require.NoError(t, err)
	require.Equal(t, FamilyRLENPloid, res.Family)

	decoded, err := DecodeRecord(res.Family, res.Width, res.Bytes, res.NumRuns, 3, 2, 3)
	require.NoError(t, err)
	for i, s := range decoded {
		require.Equal(t, samples[i].Alleles, s.Alleles)
	}
}

func TestDecodeRecordRejectsLengthMismatch(t *testing.T) {
	samples := []SampleGT{{Alleles: []int{0, 0}}, {Alleles: []int{0, 0}}}
	res, err := EncodeRecord(samples, 2, 2)
	require.NoError(t, err)
	_, err = DecodeRecord(res.Family, res.Width, res.Bytes, res.NumRuns, 2, 2, 3)
	require.Error(t, err)
}
