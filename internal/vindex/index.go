package vindex

import (
	"sort"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// perContig bundles one contig's quad tree and linear list.
type perContig struct {
	tree   *QuadTree
	linear Linear
}

// Index is the archive-wide positional index of spec.md §4.6: one quad
// tree and one linear list per contig, plus the meta-index reduction.
type Index struct {
	contigs     map[uint32]*perContig
	contigOrder []uint32
	lengthBP    map[uint32]uint64
}

// NewIndex returns an empty index; contigs are registered via AddContig,
// and Insert ignores entries whose contig was never registered.
func NewIndex() *Index {
	return &Index{contigs: map[uint32]*perContig{}, lengthBP: map[uint32]uint64{}}
}

// AddContig registers a contig's length, allocating its quad tree. It is
// safe to call more than once for the same contig id only if lengthBP
// agrees with the first registration; a disagreement is the write/read
// schema mismatch spec.md §4.6 classifies FormatIncompatible.
func (idx *Index) AddContig(contigID uint32, lengthBP uint64) error {
	if existing, ok := idx.lengthBP[contigID]; ok {
		if existing != lengthBP {
			return tachyonerr.New(tachyonerr.FormatIncompatible,
				"vindex: contig %d length changed from %d to %d between write and read", contigID, existing, lengthBP)
		}
		return nil
	}
	idx.lengthBP[contigID] = lengthBP
	idx.contigs[contigID] = &perContig{tree: NewQuadTree(lengthBP)}
	idx.contigOrder = append(idx.contigOrder, contigID)
	return nil
}

// Insert records one written block's descriptor into both the quad tree
// and the linear list of its contig, per spec.md §4.2's finalize step.
func (idx *Index) Insert(e IndexEntry) {
	c := idx.contigs[e.ContigID]
	if c == nil {
		return
	}
	c.tree.Insert(e.MinPos, e.MaxPos, e.BlockID)
	c.linear.Append(e)
}

// Lookup implements spec.md §4.6's full two-stage query: quad-tree superset
// collection, linear-list precise overlap filter, sort and dedup. An
// out-of-range contig id returns an empty (not error) result, per spec.md
// §4.6 "Failure semantics".
func (idx *Index) Lookup(contigID uint32, from, to uint64) []uint32 {
	c := idx.contigs[contigID]
	if c == nil {
		return nil
	}
	candidates := c.tree.Query(from, to)
	filtered := c.linear.Filter(candidates, from, to)
	return sortDedup(filtered)
}

// LookupEntries is Lookup, but returns the full IndexEntry for each
// matching block (its byte offset/length included) instead of bare ids,
// for callers that need to fetch and decode the blocks themselves.
func (idx *Index) LookupEntries(contigID uint32, from, to uint64) []IndexEntry {
	c := idx.contigs[contigID]
	if c == nil {
		return nil
	}
	ids := idx.Lookup(contigID, from, to)
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[uint32]IndexEntry, len(c.linear.Entries()))
	for _, e := range c.linear.Entries() {
		byID[e.BlockID] = e
	}
	out := make([]IndexEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func sortDedup(ids []uint32) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Meta builds the archive-wide meta-index by concatenating every contig's
// linear entries in contig-registration order and reducing over them.
func (idx *Index) Meta() MetaIndex {
	return BuildMetaIndex(idx.AllEntries())
}

// AllEntries returns every IndexEntry across every contig, in
// contig-registration order and, within a contig, write order. Unlike
// Meta, this never merges entries, so callers needing the exact
// (ByteOffset, ByteLength) of each individual on-disk block — e.g. to
// decode every block in the archive via Records() — must use this
// instead of Meta's contig-span reduction.
func (idx *Index) AllEntries() []IndexEntry {
	var all []IndexEntry
	for _, cid := range idx.contigOrder {
		all = append(all, idx.contigs[cid].linear.Entries()...)
	}
	return all
}
