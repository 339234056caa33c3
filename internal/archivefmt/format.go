// Package archivefmt implements the on-disk archive layout of spec.md §4.7:
// magic + version, a compressed global header carrying the schema, a
// sequence of blocks each framed with its own header and sentinel, and a
// trailing footer carrying the serialized positional index.
package archivefmt

import (
	"encoding/binary"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// Magic is the archive's leading (and, per spec.md §4.7, trailing)
// sentinel bytes.
var Magic = [4]byte{'T', 'C', 'H', 'Y'}

// Version is the archive format's (major, minor, patch) triple.
type Version struct {
	Major, Minor, Patch uint8
}

// CurrentVersion is the version this package writes.
var CurrentVersion = Version{Major: 1, Minor: 0, Patch: 0}

// BlockSentinel is the fixed 8-byte marker every block ends with, per
// spec.md §4.7 ("ends with a fixed 8-byte block sentinel; readers verify
// the sentinel").
var BlockSentinel = [8]byte{0xFE, 0xED, 0xFA, 0xCE, 0xFE, 0xED, 0xFA, 0xCE}

func (v Version) encode() [3]byte { return [3]byte{v.Major, v.Minor, v.Patch} }

func decodeVersion(b [3]byte) Version { return Version{Major: b[0], Minor: b[1], Patch: b[2]} }

// writeSizePrefixed compresses payload with DataDog/zstd (spec.md §4.7
// "itself compressed with the generic codec and prefixed with its
// compressed and uncompressed sizes") and returns the framed bytes:
// uncompressed-size, compressed-size, compressed bytes.
func writeSizePrefixed(payload []byte) ([]byte, error) {
	compressed, err := zstd.Compress(nil, payload)
	if err != nil {
		return nil, errors.Wrap(err, "archivefmt: compress")
	}
	out := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(compressed)))
	copy(out[8:], compressed)
	return out, nil
}

// readSizePrefixed inverts writeSizePrefixed, given buf positioned at the
// frame's start; it returns the decompressed payload and the number of
// bytes consumed from buf.
func readSizePrefixed(buf []byte) ([]byte, int, error) {
	if len(buf) < 8 {
		return nil, 0, tachyonerr.New(tachyonerr.Io, "archivefmt: truncated size-prefixed frame")
	}
	uncompressedLen := binary.LittleEndian.Uint32(buf[0:4])
	compressedLen := binary.LittleEndian.Uint32(buf[4:8])
	if len(buf) < 8+int(compressedLen) {
		return nil, 0, tachyonerr.New(tachyonerr.Io, "archivefmt: truncated size-prefixed frame body")
	}
	compressed := buf[8 : 8+compressedLen]
	payload, err := zstd.Decompress(make([]byte, 0, uncompressedLen), compressed)
	if err != nil {
		return nil, 0, errors.Wrap(err, "archivefmt: decompress")
	}
	if uint32(len(payload)) != uncompressedLen {
		return nil, 0, tachyonerr.New(tachyonerr.ChecksumMismatch,
			"archivefmt: decompressed length %d does not match recorded length %d", len(payload), uncompressedLen)
	}
	return payload, 8 + int(compressedLen), nil
}
