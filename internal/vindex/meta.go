package vindex

// MetaSpan coalesces consecutive same-contig linear entries, per spec.md
// §4.6 "a reduction over the linear list; consecutive entries with
// identical contig_id are collapsed into {contig_id, first_block,
// last_block, n_variants_total, byte_offset, byte_length}."
type MetaSpan struct {
	ContigID       uint32
	FirstBlock     uint32
	LastBlock      uint32
	NVariantsTotal int
	ByteOffset     uint64
	ByteLength     uint64
}

// MetaIndex is the top-level reduction over every contig's linear list,
// used to fast-skip whole contig-runs that can't match a query.
type MetaIndex []MetaSpan

// BuildMetaIndex reduces entries (assumed in write order, i.e. grouped by
// contig) into contiguous same-contig spans.
func BuildMetaIndex(entries []IndexEntry) MetaIndex {
	var spans MetaIndex
	for _, e := range entries {
		if n := len(spans); n > 0 && spans[n-1].ContigID == e.ContigID {
			s := &spans[n-1]
			s.LastBlock = e.BlockID
			s.NVariantsTotal += e.NVariants
			s.ByteLength = e.ByteOffset + e.ByteLength - s.ByteOffset
			continue
		}
		spans = append(spans, MetaSpan{
			ContigID:       e.ContigID,
			FirstBlock:     e.BlockID,
			LastBlock:      e.BlockID,
			NVariantsTotal: e.NVariants,
			ByteOffset:     e.ByteOffset,
			ByteLength:     e.ByteLength,
		})
	}
	return spans
}
