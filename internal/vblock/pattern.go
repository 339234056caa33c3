package vblock

import (
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/swiss"
)

// Pattern is the sorted, de-duplicated set of INFO/FORMAT/FILTER keys used
// by a record, interned per block (spec.md glossary "Pattern").
type Pattern struct {
	Keys []uint32
}

func hashPattern(keys []uint32) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, k := range keys {
		buf[0], buf[1], buf[2], buf[3] = byte(k), byte(k>>8), byte(k>>16), byte(k>>24)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// PatternDict interns patterns by content hash, using
// github.com/cockroachdb/swiss for the hash->id lookup, per spec.md §4.2
// "hash the sorted pattern and either return an existing dictionary id or
// intern a new one."
type PatternDict struct {
	patterns []Pattern
	byHash   *swiss.Map[uint64, int]
}

// NewPatternDict returns an empty dictionary.
func NewPatternDict() *PatternDict {
	return &PatternDict{byHash: swiss.New[uint64, int](8)}
}

// Intern canonicalizes keys (sorted, de-duplicated) and returns its
// dictionary id, creating a new entry on first sight of this exact key set.
func (d *PatternDict) Intern(keys []uint32) int {
	canon := slices.Clone(keys)
	slices.Sort(canon)
	canon = slices.Compact(canon)
	h := hashPattern(canon)
	if id, ok := d.byHash.Get(h); ok && slices.Equal(d.patterns[id].Keys, canon) {
		return id
	}
	id := len(d.patterns)
	d.patterns = append(d.patterns, Pattern{Keys: canon})
	d.byHash.Put(h, id)
	return id
}

// Patterns returns the interned patterns in id order.
func (d *PatternDict) Patterns() []Pattern { return d.patterns }

// Bitmap renders pattern id's membership as a bit vector over localKeySpace
// (the block's sorted, de-duplicated keys for this axis): bit k is set iff
// localKeySpace[k] appears in the pattern (spec.md §3, §4.2).
func Bitmap(pattern Pattern, localKeySpace []uint32) []byte {
	bitmap := make([]byte, (len(localKeySpace)+7)/8)
	memberSet := make(map[uint32]bool, len(pattern.Keys))
	for _, k := range pattern.Keys {
		memberSet[k] = true
	}
	for i, k := range localKeySpace {
		if memberSet[k] {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	return bitmap
}

// BitmapKeys returns the local keys whose bit is set in bitmap (used to
// verify spec.md §8's "pattern id stored on every record indexes a pattern
// whose bitmap's set bits are exactly the local keys used by that record").
func BitmapKeys(bitmap []byte, localKeySpace []uint32) []uint32 {
	var out []uint32
	for i, k := range localKeySpace {
		if bitmap[i/8]&(1<<uint(i%8)) != 0 {
			out = append(out, k)
		}
	}
	return out
}
