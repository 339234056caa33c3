package genotype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 2 of spec.md §8: four samples, three records where samples 0
// and 2 are always 0/0 and samples 1 and 3 are always 1/1. Expect the PPA
// to permute to [0,2,1,3], and each record to encode as exactly 2 runs of
// length 2.
func TestBuildPPA_GroupsMatchingSamples(t *testing.T) {
	rec := RecordCalls{Ploidy: 2, NAlleles: 2, Calls: [][]int{
		{0, 0}, {1, 1}, {0, 0}, {1, 1},
	}}
	ppa := Build(4, []RecordCalls{rec, rec, rec})
	require.True(t, ppa.IsBijection(4))
	require.Equal(t, PPA{0, 2, 1, 3}, ppa)

	permuted := Permute(rec.Calls, ppa)
	samples := make([]SampleGT, len(permuted))
	for i, c := range permuted {
		samples[i] = SampleGT{Alleles: c, Phased: true}
	}
	result, err := EncodeRecord(samples, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRuns)
}

func TestIdentityPPAIsBijection(t *testing.T) {
	p := NewIdentityPPA(10)
	require.True(t, p.IsBijection(10))
}

func TestRadixPassPreservesBijection(t *testing.T) {
	perm := NewIdentityPPA(9)
	rec := RecordCalls{Ploidy: 2, NAlleles: 2, Calls: [][]int{
		{0, 0}, {0, 1}, {0, MissingAllele},
		{1, 0}, {1, 1}, {1, MissingAllele},
		{MissingAllele, 0}, {MissingAllele, 1}, {MissingAllele, MissingAllele},
	}}
	perm = RadixPass(perm, rec)
	require.True(t, perm.IsBijection(9))
	// 0/0 is the most common-sorting state and must land first.
	require.EqualValues(t, 0, perm[0])
}

func TestCheckPackingLimitRejectsOversizedTuples(t *testing.T) {
	// ceil(log2(200+2)) = 8 bits/allele; ploidy 9 => 72 > 64.
	err := CheckPackingLimit(9, 200)
	require.Error(t, err)
}
