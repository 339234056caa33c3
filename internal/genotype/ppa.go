// Package genotype implements the permutation-and-encoding pipeline of
// spec.md §4.3: the per-block sample permutation array (PPA) that maximizes
// genotype run length, and the family of run-length genotype encodings
// (diploid biallelic, diploid n-allelic, n-ploid; a reserved, never-emitted
// BCF-style family rounds out the table in spec.md §4.3.2).
package genotype

import (
	"math/bits"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// MissingAllele and EOVAllele are the two sentinel symbols reserved in the
// base-(n_alleles+2) tuple alphabet of spec.md §4.3.1: "missing" and
// "end-of-vector" (partial ploidy).
const (
	MissingAllele = -1
	EOVAllele     = -2
)

// alleleSymbol maps a logical allele call (a real allele index, or
// MissingAllele/EOVAllele) onto its position in the base-(n_alleles+2)
// alphabet: real alleles occupy [0, n_alleles), missing is n_alleles, EOV is
// n_alleles+1.
func alleleSymbol(call, nAlleles int) int {
	switch call {
	case MissingAllele:
		return nAlleles
	case EOVAllele:
		return nAlleles + 1
	default:
		return call
	}
}

// TupleBits returns ceil(log2(n_alleles+2)), the number of bits needed to
// represent one allele call (including the two sentinels) in the
// permutation tuple alphabet.
func TupleBits(nAlleles int) int {
	base := nAlleles + 2
	if base <= 1 {
		return 1
	}
	return bits.Len(uint(base - 1))
}

// CheckPackingLimit enforces spec.md §4.3.1's "Required:
// ceil(log2(n_alleles+2)) * ploidy ≤ 64", returning ResourceExhausted
// otherwise.
func CheckPackingLimit(ploidy, nAlleles int) error {
	if TupleBits(nAlleles)*ploidy > 64 {
		return tachyonerr.New(tachyonerr.ResourceExhausted,
			"genotype: ploidy %d * ceil(log2(%d+2)) bits exceeds 64-bit packing limit", ploidy, nAlleles)
	}
	return nil
}

// tupleValue packs a sample's per-ploidy allele calls into a single integer
// in base (n_alleles+2), per spec.md §4.3.1 "Interpret each tuple as a
// base-(n_alleles+2) integer".
func tupleValue(calls []int, nAlleles int) uint64 {
	base := uint64(nAlleles + 2)
	var v uint64
	for _, c := range calls {
		v = v*base + uint64(alleleSymbol(c, nAlleles))
	}
	return v
}

// diploidBiallelicBinOrder is the fixed remapping spec.md §4.3.1 names for
// the hot path (ploidy=2, n_alleles=2): tuple value -> bin id, chosen so the
// most common state 0/0 sorts first.
var diploidBiallelicBinOrder = map[uint64]int{
	0: 0, 1: 3, 2: 4, 4: 2, 5: 1, 6: 5, 8: 6, 9: 7, 10: 8,
}

// binOrder returns the bin id for tuple value v, and the total bin count,
// for a record with the given ploidy/nAlleles. The diploid-biallelic case
// uses the fixed remapping above; every other shape buckets by the tuple's
// natural ascending order, since spec.md only specifies a remapping for the
// hot path.
func binOrder(v uint64, ploidy, nAlleles int) (bin, nBins int) {
	base := nAlleles + 2
	nBins = 1
	for i := 0; i < ploidy; i++ {
		nBins *= base
	}
	if ploidy == 2 && nAlleles == 2 {
		return diploidBiallelicBinOrder[v], len(diploidBiallelicBinOrder)
	}
	return int(v), nBins
}

// PPA is the block's permutation array: a bijection over [0, n_samples)
// mapping the on-wire sample order to sample indices in the original
// (producer) order, relabeled to maximize genotype run length.
type PPA []uint32

// NewIdentityPPA returns the identity permutation over n samples.
func NewIdentityPPA(n int) PPA {
	p := make(PPA, n)
	for i := range p {
		p[i] = uint32(i)
	}
	return p
}

// IsBijection verifies p is a permutation of [0, n), per spec.md §4.3.3
// "Permutation inversion is verified by asserting the decoded PPA is a
// bijection."
func (p PPA) IsBijection(n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if int(v) >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// RecordCalls supplies one record's per-sample genotype calls to the radix
// pass: Calls[s] is the ploidy-length slice of allele calls for sample s in
// *original* (producer) sample numbering.
type RecordCalls struct {
	Ploidy   int
	NAlleles int
	Calls    [][]int // indexed by original sample index
}

// RadixPass runs one radix-sort-by-tuple pass of spec.md §4.3.1 over the
// current permutation, using record r's genotype calls, and returns the
// updated permutation:
//
//	for each sample s in current permutation order:
//	  bin[state_of(s)].push(permutation[s])
//	permutation = concat(bin[0..n_bins-1])
func RadixPass(perm PPA, r RecordCalls) PPA {
	_, nBins := binOrder(0, r.Ploidy, r.NAlleles)
	buckets := make([][]uint32, nBins)
	for _, sampleIdx := range perm {
		v := tupleValue(r.Calls[sampleIdx], r.NAlleles)
		bin, _ := binOrder(v, r.Ploidy, r.NAlleles)
		buckets[bin] = append(buckets[bin], sampleIdx)
	}
	out := make(PPA, 0, len(perm))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

// Build runs RadixPass over every record in order, starting from the
// identity permutation, and returns the block's final PPA. A single-sample
// archive disables permutation per spec.md §8 ("PPA absent"); callers
// should skip calling Build when n_samples <= 1 and omit the PPA container.
func Build(nSamples int, records []RecordCalls) PPA {
	perm := NewIdentityPPA(nSamples)
	for _, r := range records {
		perm = RadixPass(perm, r)
	}
	return perm
}

// Permute returns calls reordered so permuted index i holds the original
// sample perm[i]'s calls, i.e. it applies the PPA to a record's genotype
// data before encoding.
func Permute(calls [][]int, perm PPA) [][]int {
	out := make([][]int, len(perm))
	for i, sampleIdx := range perm {
		out[i] = calls[sampleIdx]
	}
	return out
}
