// Package vindex implements the two-tier positional index of spec.md §4.6:
// a per-contig flat-array quad tree (superset filter), a per-contig linear
// list of block descriptors (precise overlap filter), and a meta-index
// reduction over consecutive same-contig entries.
package vindex

// MaxLevels is the largest quad-tree depth spec.md §4.6 allows ("choose
// levels L in [1,7]").
const MaxLevels = 7

// minLeafSpan is the smallest acceptable bin span in base pairs
// ("length_bp / 4^L >= 2500 bp per leaf").
const minLeafSpan = 2500

// Levels chooses L, the largest level in [1, MaxLevels] with
// lengthBP/4^L >= 2500.
func Levels(lengthBP uint64) int {
	for l := MaxLevels; l >= 1; l-- {
		span := lengthBP / pow4(l)
		if span >= minLeafSpan {
			return l
		}
	}
	return 1
}

func pow4(l int) uint64 {
	v := uint64(1)
	for i := 0; i < l; i++ {
		v *= 4
	}
	return v
}

// QuadTree is the flat-array 4-ary hierarchy for one contig, per spec.md
// §9 "a flat array of bins indexed by a precomputed prefix sum over 4^i;
// no pointer graph. Bin lookups are arithmetic."
type QuadTree struct {
	lengthBP uint64
	levels   int
	// cumStart[l] is the index of level l's first bin in bins.
	cumStart []int
	bins     [][]uint32 // block ids per bin, across all levels
}

// NewQuadTree allocates an empty tree sized for a contig of the given
// length, per spec.md §4.6 "Allocate (4^0+...+4^L) = (4^(L+1)-1)/3 bins."
func NewQuadTree(lengthBP uint64) *QuadTree {
	levels := Levels(lengthBP)
	cumStart := make([]int, levels+1)
	total := 0
	for l := 0; l <= levels; l++ {
		cumStart[l] = total
		total += int(pow4(l))
	}
	return &QuadTree{
		lengthBP: lengthBP,
		levels:   levels,
		cumStart: cumStart,
		bins:     make([][]uint32, total),
	}
}

// binSpan returns the base-pair width of a level-l bin.
func (q *QuadTree) binSpan(l int) uint64 {
	span := q.lengthBP / pow4(l)
	if span == 0 {
		span = 1
	}
	return span
}

// binIndexAt returns the level-l bin index containing position pos.
func (q *QuadTree) binIndexAt(l int, pos uint64) int {
	idx := int(pos / q.binSpan(l))
	max := int(pow4(l)) - 1
	if idx > max {
		idx = max
	}
	return idx
}

// deepestContaining finds the deepest level (searching from q.levels up
// toward the root) at which from and to map to the same bin, per spec.md
// §4.6 insertion step 1, and returns its flat index into q.bins.
func (q *QuadTree) deepestContaining(from, to uint64) int {
	level := 0
	binIdx := 0
	for l := q.levels; l >= 0; l-- {
		fb := q.binIndexAt(l, from)
		tb := q.binIndexAt(l, to)
		if fb == tb {
			level, binIdx = l, fb
			break
		}
	}
	return q.cumStart[level] + binIdx
}

// Insert records blockID as overlapping [from, to], per spec.md §4.6
// insertion steps 1-2.
func (q *QuadTree) Insert(from, to uint64, blockID uint32) {
	flat := q.deepestContaining(from, to)
	q.bins[flat] = append(q.bins[flat], blockID)
}

// Query walks root-to-leaf, per spec.md §4.6 lookup step 1: "collecting
// every visited bin whose interval overlaps [from, to]", and returns the
// concatenation of their block-id lists (a superset the caller must still
// filter against the linear list).
func (q *QuadTree) Query(from, to uint64) []uint32 {
	var out []uint32
	for l := 0; l <= q.levels; l++ {
		span := q.binSpan(l)
		loBin := int(from / span)
		hiBin := int(to / span)
		maxBin := int(pow4(l)) - 1
		if hiBin > maxBin {
			hiBin = maxBin
		}
		for b := loBin; b <= hiBin; b++ {
			flat := q.cumStart[l] + b
			out = append(out, q.bins[flat]...)
		}
	}
	return out
}
