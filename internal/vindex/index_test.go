package vindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 5 of spec.md §8: query (chr=3, from=1_000_000, to=1_000_100)
// against an archive containing blocks on chr3 spanning
// [999_000, 1_000_050], [1_000_050, 1_000_200], [2_000_000, 2_000_100].
// Expect exactly the first two block ids, in order, after quad-tree plus
// linear-list filtering and dedup.
func TestScenario5_LookupReturnsOverlappingBlocksInOrder(t *testing.T) {
	idx := NewIndex()
	const chr3 = 3
	require.NoError(t, idx.AddContig(chr3, 5_000_000))

	idx.Insert(IndexEntry{BlockID: 1, ContigID: chr3, MinPos: 999_000, MaxPos: 1_000_050, NVariants: 10})
	idx.Insert(IndexEntry{BlockID: 2, ContigID: chr3, MinPos: 1_000_050, MaxPos: 1_000_200, NVariants: 10})
	idx.Insert(IndexEntry{BlockID: 3, ContigID: chr3, MinPos: 2_000_000, MaxPos: 2_000_100, NVariants: 10})

	got := idx.Lookup(chr3, 1_000_000, 1_000_100)
	require.Equal(t, []uint32{1, 2}, got)
}

func TestLookup_OutOfRangeContigIsEmptyNotError(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.AddContig(1, 1_000_000))
	got := idx.Lookup(99, 0, 100)
	require.Nil(t, got)
}

func TestAddContig_LengthChangeIsFormatIncompatible(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.AddContig(1, 1_000_000))
	err := idx.AddContig(1, 2_000_000)
	require.Error(t, err)
}

func TestLevels_MatchesSpecExamples(t *testing.T) {
	require.Equal(t, 1, Levels(9_999))
	require.Equal(t, MaxLevels, Levels(4_000_000_000))
}

func TestMetaIndex_CollapsesConsecutiveSameContig(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.AddContig(1, 1_000_000))
	require.NoError(t, idx.AddContig(2, 1_000_000))
	idx.Insert(IndexEntry{BlockID: 1, ContigID: 1, MinPos: 0, MaxPos: 100, NVariants: 5, ByteOffset: 0, ByteLength: 50})
	idx.Insert(IndexEntry{BlockID: 2, ContigID: 1, MinPos: 100, MaxPos: 200, NVariants: 7, ByteOffset: 50, ByteLength: 60})
	idx.Insert(IndexEntry{BlockID: 3, ContigID: 2, MinPos: 0, MaxPos: 100, NVariants: 3, ByteOffset: 110, ByteLength: 40})

	meta := idx.Meta()
	require.Len(t, meta, 2)
	require.Equal(t, uint32(1), meta[0].ContigID)
	require.Equal(t, uint32(1), meta[0].FirstBlock)
	require.Equal(t, uint32(2), meta[0].LastBlock)
	require.Equal(t, 12, meta[0].NVariantsTotal)
	require.Equal(t, uint32(2), meta[1].ContigID)
}
