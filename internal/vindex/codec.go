package vindex

import (
	"bytes"
	"encoding/binary"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// Encode serializes the index for the archive footer, per spec.md §4.7
// "the footer carries the serialized positional index". Rather than
// flattening the quad tree's bin arrays, it records each contig's length
// and its linear entries in insertion order: decoding replays AddContig
// and Insert, which rebuilds an identical quad tree as a side effect.
func (idx *Index) Encode() []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(len(idx.contigOrder)))
	for _, cid := range idx.contigOrder {
		writeUvarint(&buf, uint64(cid))
		writeUvarint(&buf, idx.lengthBP[cid])
		entries := idx.contigs[cid].linear.Entries()
		writeUvarint(&buf, uint64(len(entries)))
		for _, e := range entries {
			writeUvarint(&buf, uint64(e.BlockID))
			writeUvarint(&buf, uint64(e.ContigID))
			writeUvarint(&buf, e.MinPos)
			writeUvarint(&buf, e.MaxPos)
			writeUvarint(&buf, uint64(e.NVariants))
			writeUvarint(&buf, e.ByteOffset)
			writeUvarint(&buf, e.ByteLength)
		}
	}
	return buf.Bytes()
}

// Decode inverts Encode, rebuilding an Index with the same contigs, quad
// trees, and linear lists as the one that produced data.
func Decode(data []byte) (*Index, error) {
	r := bytes.NewReader(data)
	idx := NewIndex()

	nContigs, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, wrapIndexErr(err)
	}
	for i := uint64(0); i < nContigs; i++ {
		cid, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, wrapIndexErr(err)
		}
		length, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, wrapIndexErr(err)
		}
		if err := idx.AddContig(uint32(cid), length); err != nil {
			return nil, err
		}
		nEntries, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, wrapIndexErr(err)
		}
		for j := uint64(0); j < nEntries; j++ {
			blockID, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			contigID, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			minPos, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			maxPos, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			nVariants, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			byteOffset, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			byteLength, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, wrapIndexErr(err)
			}
			idx.Insert(IndexEntry{
				BlockID:    uint32(blockID),
				ContigID:   uint32(contigID),
				MinPos:     minPos,
				MaxPos:     maxPos,
				NVariants:  int(nVariants),
				ByteOffset: byteOffset,
				ByteLength: byteLength,
			})
		}
	}
	return idx, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func wrapIndexErr(err error) error {
	return tachyonerr.New(tachyonerr.Io, "vindex: truncated index: %v", err)
}
