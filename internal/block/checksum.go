package block

import "github.com/cespare/xxhash/v2"

// Checksum computes the checksum recorded in a Header, per spec.md §4.1
// "Checksum covers the uncompressed data (and, independently, the
// uncompressed strides if present)."
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
