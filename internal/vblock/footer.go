package vblock

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// EncodeFooter serializes a block's Footer, per spec.md §4.2: the
// (global_key -> local_offset) tables for INFO and FORMAT, followed by the
// three pattern dictionaries and their bitmaps. internal/archivefmt frames
// this alongside the container headers when writing a block.
func EncodeFooter(f Footer) []byte {
	var buf bytes.Buffer
	writeKeyOffsets(&buf, f.InfoKeyOffsets)
	writeKeyOffsets(&buf, f.FormatKeyOffsets)
	writePatterns(&buf, f.InfoPatterns, f.InfoBitmaps)
	writePatterns(&buf, f.FormatPatterns, f.FormatBitmaps)
	writePatterns(&buf, f.FilterPatterns, f.FilterBitmaps)
	return buf.Bytes()
}

func writeKeyOffsets(buf *bytes.Buffer, offsets []KeyOffset) {
	writeUvarint(buf, uint64(len(offsets)))
	for _, ko := range offsets {
		writeUvarint(buf, uint64(ko.GlobalKey))
		writeUvarint(buf, uint64(ko.LocalOffset))
	}
}

func writePatterns(buf *bytes.Buffer, patterns []Pattern, bitmaps [][]byte) {
	writeUvarint(buf, uint64(len(patterns)))
	for i, p := range patterns {
		writeUvarint(buf, uint64(len(p.Keys)))
		for _, k := range p.Keys {
			writeUvarint(buf, uint64(k))
		}
		bm := bitmaps[i]
		writeUvarint(buf, uint64(len(bm)))
		buf.Write(bm)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

// DecodeFooter inverts EncodeFooter.
func DecodeFooter(data []byte) (Footer, error) {
	var f Footer
	r := bytes.NewReader(data)

	infoOffsets, err := readKeyOffsets(r)
	if err != nil {
		return f, err
	}
	formatOffsets, err := readKeyOffsets(r)
	if err != nil {
		return f, err
	}
	infoPatterns, infoBitmaps, err := readPatterns(r)
	if err != nil {
		return f, err
	}
	formatPatterns, formatBitmaps, err := readPatterns(r)
	if err != nil {
		return f, err
	}
	filterPatterns, filterBitmaps, err := readPatterns(r)
	if err != nil {
		return f, err
	}

	f.InfoKeyOffsets = infoOffsets
	f.FormatKeyOffsets = formatOffsets
	f.InfoPatterns, f.InfoBitmaps = infoPatterns, infoBitmaps
	f.FormatPatterns, f.FormatBitmaps = formatPatterns, formatBitmaps
	f.FilterPatterns, f.FilterBitmaps = filterPatterns, filterBitmaps
	return f, nil
}

func readKeyOffsets(r *bytes.Reader) ([]KeyOffset, error) {
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, wrapFooterErr(err)
	}
	out := make([]KeyOffset, count)
	for i := range out {
		gk, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, wrapFooterErr(err)
		}
		lo, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, wrapFooterErr(err)
		}
		out[i] = KeyOffset{GlobalKey: uint32(gk), LocalOffset: uint32(lo)}
	}
	return out, nil
}

func readPatterns(r *bytes.Reader) ([]Pattern, [][]byte, error) {
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, nil, wrapFooterErr(err)
	}
	patterns := make([]Pattern, count)
	bitmaps := make([][]byte, count)
	for i := range patterns {
		nKeys, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, nil, wrapFooterErr(err)
		}
		keys := make([]uint32, nKeys)
		for j := range keys {
			k, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, nil, wrapFooterErr(err)
			}
			keys[j] = uint32(k)
		}
		patterns[i] = Pattern{Keys: keys}

		bmLen, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, nil, wrapFooterErr(err)
		}
		bm := make([]byte, bmLen)
		if _, err := io.ReadFull(r, bm); err != nil {
			return nil, nil, wrapFooterErr(err)
		}
		bitmaps[i] = bm
	}
	return patterns, bitmaps, nil
}

func wrapFooterErr(err error) error {
	return tachyonerr.New(tachyonerr.BlockSentinelMismatch, "vblock: truncated footer: %v", err)
}
