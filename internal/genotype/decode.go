package genotype

import "github.com/tachyon-genomics/tachyon/internal/tachyonerr"

// DecodeRecord inverts EncodeRecord: it walks numRuns run entries out of
// buf (the (family, width) container's bytes for this record, located by
// the caller using the genotype support container's length) and expands
// them back into nSamples permuted SampleGT values.
//
// Per spec.md §4.3.3, a per-record sanity check asserts that the sum of run
// lengths equals n_samples; any violation fails the block with
// GenotypeStreamCorrupt.
func DecodeRecord(family Family, width Width, buf []byte, numRuns, ploidy, nAlleles, nSamples int) ([]SampleGT, error) {
	switch family {
	case FamilyRLEDiploidBiallelic, FamilyRLEDiploidNAllelic:
		return decodeDiploid(family, width, buf, numRuns, nAlleles, nSamples)
	case FamilyRLENPloid:
		return decodeNPloid(width, buf, numRuns, ploidy, nSamples)
	default:
		return nil, tachyonerr.New(tachyonerr.FormatUnsupported, "genotype: family %d is reserved and never emitted", family)
	}
}

func decodeDiploid(family Family, width Width, buf []byte, numRuns, nAlleles, nSamples int) ([]SampleGT, error) {
	shift := alleleShift(family, nAlleles)
	headerBits := 2*shift + 1
	entrySize := width.Bytes()
	out := make([]SampleGT, 0, nSamples)
	total := 0
	for i := 0; i < numRuns; i++ {
		v := getWidth(buf[i*entrySize:], width)
		a := decodeAllele(v&mask(shift), nAlleles)
		b := decodeAllele((v>>uint(shift))&mask(shift), nAlleles)
		phased := (v>>uint(2*shift))&1 != 0
		length := int(v >> uint(headerBits))
		for k := 0; k < length; k++ {
			out = append(out, SampleGT{Alleles: []int{a, b}, Phased: phased})
		}
		total += length
	}
	if total != nSamples {
		return nil, tachyonerr.New(tachyonerr.GenotypeStreamCorrupt,
			"genotype: decoded run lengths sum to %d, want %d samples", total, nSamples)
	}
	return out, nil
}

func decodeNPloid(width Width, buf []byte, numRuns, ploidy, nSamples int) ([]SampleGT, error) {
	entrySize := width.Bytes() + ploidy
	out := make([]SampleGT, 0, nSamples)
	total := 0
	for i := 0; i < numRuns; i++ {
		off := i * entrySize
		length := int(getWidth(buf[off:], width))
		alleles := make([]int, ploidy)
		for j := 0; j < ploidy; j++ {
			alleles[j] = decodeByteAllele(buf[off+width.Bytes()+j])
		}
		for k := 0; k < length; k++ {
			out = append(out, SampleGT{Alleles: alleles})
		}
		total += length
	}
	if total != nSamples {
		return nil, tachyonerr.New(tachyonerr.GenotypeStreamCorrupt,
			"genotype: decoded run lengths sum to %d, want %d samples", total, nSamples)
	}
	return out, nil
}

func mask(bits int) uint64 { return (uint64(1) << uint(bits)) - 1 }
