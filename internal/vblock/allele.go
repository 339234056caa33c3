package vblock

import "bytes"

// nonRefSymbol is the gVCF symbolic allele packed as nibble value 5 (spec.md
// §4.4).
var nonRefSymbol = []byte("<NON_REF>")

var nibbleAlphabet = []byte{'A', 'C', 'G', 'T', 'N'}

// AlleleNibble maps a single allele (one base letter, or the <NON_REF>
// symbol) onto its 4-bit alphabet value, per spec.md §4.4's "Packed" form.
func AlleleNibble(allele []byte) (nibble byte, ok bool) {
	if len(allele) == 1 {
		for i, b := range nibbleAlphabet {
			if allele[0] == b {
				return byte(i), true
			}
		}
		return 0, false
	}
	if bytes.Equal(allele, nonRefSymbol) {
		return 5, true
	}
	return 0, false
}

// NibbleToAllele inverts AlleleNibble.
func NibbleToAllele(nibble byte) ([]byte, bool) {
	if nibble < 5 {
		return []byte{nibbleAlphabet[nibble]}, true
	}
	if nibble == 5 {
		return nonRefSymbol, true
	}
	return nil, false
}

// CanPackRefAlt reports whether alleles (ref first, per spec.md §3) can use
// the packed ref/alt representation: exactly two alleles, each mappable
// into the 4-bit alphabet.
func CanPackRefAlt(alleles [][]byte) bool {
	if len(alleles) != 2 {
		return false
	}
	_, refOK := AlleleNibble(alleles[0])
	_, altOK := AlleleNibble(alleles[1])
	return refOK && altOK
}

// PackRefAlt packs a ref/alt pair into one byte: high nibble alt, low
// nibble ref.
func PackRefAlt(ref, alt byte) byte {
	refN, _ := AlleleNibble([]byte{ref})
	altN, _ := AlleleNibble([]byte{alt})
	return refN | (altN << 4)
}

// PackRefAltBytes packs a two-element alleles slice, assuming
// CanPackRefAlt(alleles) already holds.
func PackRefAltBytes(alleles [][]byte) byte {
	refN, _ := AlleleNibble(alleles[0])
	altN, _ := AlleleNibble(alleles[1])
	return refN | (altN << 4)
}

// UnpackRefAlt inverts PackRefAltBytes.
func UnpackRefAlt(b byte) (ref, alt []byte) {
	ref, _ = NibbleToAllele(b & 0x0F)
	alt, _ = NibbleToAllele((b >> 4) & 0x0F)
	return ref, alt
}
