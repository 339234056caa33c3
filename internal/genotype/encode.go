package genotype

import (
	"encoding/binary"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// SampleGT is one sample's genotype call at a record, in permuted (on-wire)
// sample order: Alleles[i] is either a real allele index in [0, n_alleles),
// or one of MissingAllele/EOVAllele.
type SampleGT struct {
	Alleles []int
	Phased  bool
}

// Run is one decoded run-length entry: Length consecutive permuted samples
// share Alleles (and, for the diploid families, Phased).
type Run struct {
	Alleles []int
	Phased  bool
	Length  int
}

// alleleShift is the number of bits used to encode one allele call in a
// diploid family's run payload, per spec.md §4.3.2's table. The biallelic
// family is only ever emitted when no sample has a missing/EOV call (that
// case routes to the n-allelic family instead), so its alphabet is exactly
// the two real alleles: shift = ceil(log2(n_alleles)) = 1. The n-allelic
// family reserves two sentinel symbols the same way the permutation tuple
// alphabet does (spec.md §4.3.1), so its shift is a function of n_alleles
// alone and a decoder never needs out-of-band state to invert it — this
// matches spec.md §8 scenario 3 exactly: 5 alleles, no missing present,
// still yields shift = ceil(log2(5+2)) = 3.
func alleleShift(family Family, nAlleles int) int {
	if family == FamilyRLEDiploidBiallelic {
		return bitsFor(uint64(nAlleles - 1))
	}
	return TupleBits(nAlleles)
}

func hasSpecialCall(samples []SampleGT) bool {
	for _, s := range samples {
		for _, a := range s.Alleles {
			if a == MissingAllele || a == EOVAllele {
				return true
			}
		}
	}
	return false
}

func encodeAllele(call, nAlleles int) uint64 {
	switch call {
	case MissingAllele:
		return uint64(nAlleles)
	case EOVAllele:
		return uint64(nAlleles + 1)
	default:
		return uint64(call)
	}
}

func decodeAllele(code uint64, nAlleles int) int {
	switch int(code) {
	case nAlleles:
		return MissingAllele
	case nAlleles + 1:
		return EOVAllele
	default:
		return int(code)
	}
}

// buildRuns groups consecutive permuted samples sharing the same allele
// tuple (and, when diploid, phase) into runs.
func buildRuns(samples []SampleGT) []Run {
	var runs []Run
	for _, s := range samples {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if sameAlleles(last.Alleles, s.Alleles) && last.Phased == s.Phased {
				last.Length++
				continue
			}
		}
		runs = append(runs, Run{Alleles: append([]int(nil), s.Alleles...), Phased: s.Phased, Length: 1})
	}
	return runs
}

func sameAlleles(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EncodeResult is the encoded form of one record's genotype row.
type EncodeResult struct {
	Family  Family
	Width   Width
	Bytes   []byte
	NumRuns int
}

// EncodeRecord implements spec.md §4.3.2: it groups permuted samples into
// runs, selects a family and the narrowest width that fits, and packs the
// runs into a byte stream destined for that (family, width)'s container.
func EncodeRecord(samples []SampleGT, ploidy, nAlleles int) (EncodeResult, error) {
	if err := CheckPackingLimit(ploidy, nAlleles); err != nil {
		return EncodeResult{}, err
	}
	hasSpecial := hasSpecialCall(samples)
	family := classify(ploidy, nAlleles, hasSpecial)
	runs := buildRuns(samples)

	var maxLen uint64
	for _, r := range runs {
		if uint64(r.Length) > maxLen {
			maxLen = uint64(r.Length)
		}
	}

	switch family {
	case FamilyRLEDiploidBiallelic, FamilyRLEDiploidNAllelic:
		shift := alleleShift(family, nAlleles)
		headerBits := 2*shift + 1 // alleleA, alleleB, phase bit
		width, ok := smallestWidth(headerBits + bitsFor(maxLen) - 1)
		if !ok {
			return EncodeResult{}, tachyonerr.New(tachyonerr.ResourceExhausted,
				"genotype: run length %d with %d-bit alleles exceeds 64-bit diploid run width", maxLen, shift)
		}
		buf := make([]byte, len(runs)*width.Bytes())
		for i, r := range runs {
			a := encodeAllele(r.Alleles[0], nAlleles)
			b := encodeAllele(r.Alleles[1], nAlleles)
			v := a | (b << uint(shift))
			if r.Phased {
				v |= 1 << uint(2*shift)
			}
			v |= uint64(r.Length) << uint(headerBits)
			putWidth(buf[i*width.Bytes():], v, width)
		}
		return EncodeResult{Family: family, Width: width, Bytes: buf, NumRuns: len(runs)}, nil

	case FamilyRLENPloid:
		width, ok := smallestWidth(bitsFor(maxLen) - 1)
		if !ok {
			return EncodeResult{}, tachyonerr.New(tachyonerr.ResourceExhausted,
				"genotype: run length %d exceeds 64-bit n-ploid run width", maxLen)
		}
		entrySize := width.Bytes() + ploidy
		buf := make([]byte, len(runs)*entrySize)
		for i, r := range runs {
			off := i * entrySize
			putWidth(buf[off:], uint64(r.Length), width)
			for j, a := range r.Alleles {
				buf[off+width.Bytes()+j] = byteAllele(a)
			}
		}
		return EncodeResult{Family: family, Width: width, Bytes: buf, NumRuns: len(runs)}, nil

	default:
		return EncodeResult{}, tachyonerr.New(tachyonerr.FormatUnsupported, "genotype: family %d is reserved and never emitted", family)
	}
}

// byteAllele encodes an allele call into a single byte for the n-ploid
// family: real alleles use their own index (a site with >=254 alleles is
// outside what a byte can represent), missing is 0xFF and EOV is 0xFE.
func byteAllele(call int) byte {
	switch call {
	case MissingAllele:
		return 0xFF
	case EOVAllele:
		return 0xFE
	default:
		return byte(call)
	}
}

func decodeByteAllele(b byte) int {
	switch b {
	case 0xFF:
		return MissingAllele
	case 0xFE:
		return EOVAllele
	default:
		return int(b)
	}
}

func putWidth(buf []byte, v uint64, w Width) {
	switch w {
	case Width8:
		buf[0] = byte(v)
	case Width16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case Width32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func getWidth(buf []byte, w Width) uint64 {
	switch w {
	case Width8:
		return uint64(buf[0])
	case Width16:
		return uint64(binary.LittleEndian.Uint16(buf))
	case Width32:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}
