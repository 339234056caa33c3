package vblock

import (
	"github.com/tachyon-genomics/tachyon/internal/block"
	"github.com/tachyon-genomics/tachyon/internal/genotype"
)

// KeyOffset records one entry of a (global_key -> local_offset) table, per
// spec.md §4.2's footer "INFO/FORMAT local key space": local offsets are
// the sorted-ascending rank of the global keys used anywhere in the block,
// so the same table doubles as the container producer-order permutation and
// as the pattern-bitmap bit index.
type KeyOffset struct {
	GlobalKey   uint32
	LocalOffset uint32
}

// Footer is a block's trailing metadata: the local key spaces for INFO and
// FORMAT containers, and the three pattern dictionaries with their
// per-pattern bitmaps, per spec.md §4.2 and §3.
type Footer struct {
	InfoKeyOffsets   []KeyOffset
	FormatKeyOffsets []KeyOffset

	InfoPatterns   []Pattern
	FormatPatterns []Pattern
	FilterPatterns []Pattern

	InfoBitmaps   [][]byte
	FormatBitmaps [][]byte
	FilterBitmaps [][]byte
}

// EncodedBlock is a fully built, compressed variant block ready for
// archivefmt to frame and write, or for Reader to decode back into
// records.
type EncodedBlock struct {
	ContigID  uint32
	MinPos    uint32
	MaxPos    uint32
	NVariants int

	// Present marks which BaseColumn entries are non-empty, per spec.md §6
	// "emit them in this exact order and omit those marked empty via a
	// header bitmap."
	Present presenceBitmap

	// Base holds one *block.Container per present BaseColumn, already run
	// through FinalizeUniformity/FinalizePrimitive/Manager.Compress.
	Base map[BaseColumn]*block.Container

	// Info and Format hold one container per global key actually used in
	// the block, ordered to match Footer's local offset tables.
	Info   []*block.Container
	Format []*block.Container

	// PPA is the block's sample permutation array (spec.md §4.3), nil when
	// there are <= 1 samples or no record in the block carries genotypes.
	PPA genotype.PPA

	Footer Footer
}
