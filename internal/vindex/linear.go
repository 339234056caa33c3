package vindex

// IndexEntry is one block's descriptor in a contig's linear list, per
// spec.md §3: "{block_id, contig_id, min_pos, max_pos, min_bin, max_bin,
// n_variants, byte_offset, byte_length}".
type IndexEntry struct {
	BlockID    uint32
	ContigID   uint32
	MinPos     uint64
	MaxPos     uint64
	MinBin     uint32
	MaxBin     uint32
	NVariants  int
	ByteOffset uint64
	ByteLength uint64
}

// overlaps reports whether e's [MinPos, MaxPos] span intersects [from, to].
func (e IndexEntry) overlaps(from, to uint64) bool {
	return e.MinPos <= to && from <= e.MaxPos
}

// Linear is a contig's append-only block-descriptor list, the precise
// overlap filter applied after the quad tree's superset query.
type Linear struct {
	entries []IndexEntry
}

// Append adds one block's descriptor, per spec.md §4.2 "on block finalize
// ... appends one IndexEntry to the per-contig linear list."
func (l *Linear) Append(e IndexEntry) { l.entries = append(l.entries, e) }

// Entries returns every IndexEntry in append (== block write) order.
func (l *Linear) Entries() []IndexEntry { return l.entries }

// Filter returns the subset of candidateBlockIDs whose linear entry
// overlaps [from, to], per spec.md §4.6 lookup step 2.
func (l *Linear) Filter(candidateBlockIDs []uint32, from, to uint64) []uint32 {
	byID := make(map[uint32]IndexEntry, len(l.entries))
	for _, e := range l.entries {
		byID[e.BlockID] = e
	}
	var out []uint32
	for _, id := range candidateBlockIDs {
		if e, ok := byID[id]; ok && e.overlaps(from, to) {
			out = append(out, id)
		}
	}
	return out
}
