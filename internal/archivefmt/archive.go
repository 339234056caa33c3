package archivefmt

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tachyon-genomics/tachyon/internal/block"
	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
	"github.com/tachyon-genomics/tachyon/internal/vblock"
	"github.com/tachyon-genomics/tachyon/internal/vindex"
)

// blockController bits, per spec.md §4.7 "each block begins with its own
// header (n_variants, min_pos, max_pos, contig_id, controller bits
// including has_gt, has_gt_permuted, any_encrypted)".
const (
	blockHasGT byte = 1 << iota
	blockHasGTPermuted
	blockAnyEncrypted
)

// WriteHeader writes the archive's leading magic bytes and version, per
// spec.md §4.7 step 1.
func WriteHeader(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return errIO(err)
	}
	v := CurrentVersion.encode()
	if _, err := w.Write(v[:]); err != nil {
		return errIO(err)
	}
	return nil
}

// ReadHeader reads and validates the leading magic+version, per spec.md
// §4.7; a magic mismatch is FormatMagicMismatch, and a major version other
// than CurrentVersion's is FormatUnsupported.
func ReadHeader(r io.Reader) (Version, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return Version{}, errIO(err)
	}
	if got != Magic {
		return Version{}, tachyonerr.New(tachyonerr.FormatMagicMismatch, "archivefmt: bad magic %x, want %x", got, Magic)
	}
	var v [3]byte
	if _, err := io.ReadFull(r, v[:]); err != nil {
		return Version{}, errIO(err)
	}
	ver := decodeVersion(v)
	if ver.Major != CurrentVersion.Major {
		return Version{}, tachyonerr.New(tachyonerr.FormatUnsupported,
			"archivefmt: unsupported format version %d.%d.%d", ver.Major, ver.Minor, ver.Patch)
	}
	return ver, nil
}

// WriteGlobalHeader writes the compressed, size-prefixed schema, per
// spec.md §4.7 step 2.
func WriteGlobalHeader(w io.Writer, sch *Schema) error {
	framed, err := writeSizePrefixed(EncodeSchema(sch.Schema))
	if err != nil {
		return err
	}
	_, err = w.Write(framed)
	return errIO(err)
}

// ReadGlobalHeader reads and decompresses the schema section written by
// WriteGlobalHeader.
func ReadGlobalHeader(r io.Reader) (*Schema, error) {
	var sizes [8]byte
	if _, err := io.ReadFull(r, sizes[:]); err != nil {
		return nil, errIO(err)
	}
	compressedLen := binary.LittleEndian.Uint32(sizes[4:8])
	body := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errIO(err)
	}
	framed := append(sizes[:], body...)
	payload, _, err := readSizePrefixed(framed)
	if err != nil {
		return nil, err
	}
	sch, err := DecodeSchema(payload)
	if err != nil {
		return nil, err
	}
	return NewSchema(sch), nil
}

func writeContainer(w io.Writer, col byte, c *block.Container) error {
	if _, err := w.Write([]byte{col}); err != nil {
		return errIO(err)
	}
	hdr := c.Header.Encode()
	if _, err := w.Write(hdr); err != nil {
		return errIO(err)
	}
	if _, err := w.Write(c.Data()); err != nil {
		return errIO(err)
	}
	if c.Header.MixedStride {
		if _, err := w.Write(c.Strides()); err != nil {
			return errIO(err)
		}
	}
	return nil
}

func readContainer(r io.Reader) (byte, *block.Container, error) {
	var col [1]byte
	if _, err := io.ReadFull(r, col[:]); err != nil {
		return 0, nil, errIO(err)
	}
	hdrBuf := make([]byte, block.HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return 0, nil, errIO(err)
	}
	h, _ := block.DecodeHeader(hdrBuf)
	data := make([]byte, h.CompressedLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, errIO(err)
	}
	var strides []byte
	if h.MixedStride {
		strides = make([]byte, h.CompressedStridesLen)
		if _, err := io.ReadFull(r, strides); err != nil {
			return 0, nil, errIO(err)
		}
	}
	return col[0], block.FromHeader(h, data, strides), nil
}

// WriteBlock frames one compressed, finalized block for the archive's
// block sequence: the block header, every base/INFO/FORMAT container,
// the footer, and the trailing sentinel (spec.md §4.7). The footer is
// written as a uint32 length followed by vblock.EncodeFooter's bytes; it
// is not compressed.
func WriteBlock(w io.Writer, eb *vblock.EncodedBlock) error {
	var hdr [25]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(eb.NVariants))
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(eb.MinPos))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(eb.MaxPos))
	binary.LittleEndian.PutUint32(hdr[20:24], eb.ContigID)
	var ctrl byte
	if eb.PPA != nil {
		ctrl |= blockHasGT | blockHasGTPermuted
	}
	hdr[24] = ctrl
	if _, err := w.Write(hdr[:]); err != nil {
		return errIO(err)
	}

	if err := writeUint32(w, uint32(len(eb.Base))); err != nil {
		return err
	}
	for col := vblock.ColContig; col <= vblock.ColGTSupport; col++ {
		c, ok := eb.Base[col]
		if !ok {
			continue
		}
		if err := writeContainer(w, byte(col), c); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(eb.Info))); err != nil {
		return err
	}
	for _, c := range eb.Info {
		if err := writeContainer(w, 0, c); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(eb.Format))); err != nil {
		return err
	}
	for _, c := range eb.Format {
		if err := writeContainer(w, 0, c); err != nil {
			return err
		}
	}

	footer := vblock.EncodeFooter(eb.Footer)
	if err := writeUint32(w, uint32(len(footer))); err != nil {
		return err
	}
	if _, err := w.Write(footer); err != nil {
		return errIO(err)
	}

	_, err := w.Write(BlockSentinel[:])
	return errIO(err)
}

// ReadBlock inverts WriteBlock.
func ReadBlock(r io.Reader) (*vblock.EncodedBlock, error) {
	var hdr [25]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errIO(err)
	}
	if hdr[24]&blockAnyEncrypted != 0 {
		return nil, tachyonerr.New(tachyonerr.FormatUnsupported, "archivefmt: block is marked encrypted; no decryptor is available")
	}
	eb := &vblock.EncodedBlock{
		NVariants: int(binary.LittleEndian.Uint32(hdr[0:4])),
		MinPos:    uint32(binary.LittleEndian.Uint64(hdr[4:12])),
		MaxPos:    uint32(binary.LittleEndian.Uint64(hdr[12:20])),
		ContigID:  binary.LittleEndian.Uint32(hdr[20:24]),
		Base:      map[vblock.BaseColumn]*block.Container{},
	}

	nBase, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nBase; i++ {
		col, c, err := readContainer(r)
		if err != nil {
			return nil, err
		}
		eb.Base[vblock.BaseColumn(col)] = c
	}

	nInfo, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nInfo; i++ {
		_, c, err := readContainer(r)
		if err != nil {
			return nil, err
		}
		eb.Info = append(eb.Info, c)
	}

	nFormat, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nFormat; i++ {
		_, c, err := readContainer(r)
		if err != nil {
			return nil, err
		}
		eb.Format = append(eb.Format, c)
	}

	footerLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	footerBuf := make([]byte, footerLen)
	if _, err := io.ReadFull(r, footerBuf); err != nil {
		return nil, errIO(err)
	}
	footer, err := vblock.DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}
	eb.Footer = footer

	var sentinel [8]byte
	if _, err := io.ReadFull(r, sentinel[:]); err != nil {
		return nil, errIO(err)
	}
	if !bytes.Equal(sentinel[:], BlockSentinel[:]) {
		return nil, tachyonerr.New(tachyonerr.BlockSentinelMismatch, "archivefmt: block sentinel mismatch")
	}
	return eb, nil
}

// WriteFooter writes the archive's trailing footer at the writer's current
// position: the compressed, size-prefixed serialized index, the absolute
// byte offset footerStart at which the footer itself began (8 bytes), and
// the closing 4-byte magic, so the offset occupies the 8 bytes just before
// the file's final 4 bytes.
func WriteFooter(w io.Writer, idx *vindex.Index, footerStart uint64) error {
	framed, err := writeSizePrefixed(idx.Encode())
	if err != nil {
		return err
	}
	if _, err := w.Write(framed); err != nil {
		return errIO(err)
	}
	var tail [8]byte
	binary.LittleEndian.PutUint64(tail[:], footerStart)
	if _, err := w.Write(tail[:]); err != nil {
		return errIO(err)
	}
	_, err = w.Write(Magic[:])
	return errIO(err)
}

// ReadFooter reads the footer section given footerBody positioned at the
// start of the size-prefixed index frame (i.e. at the offset recorded in
// the 8 bytes that precede the file's closing magic).
func ReadFooter(footerBody []byte) (*vindex.Index, error) {
	payload, _, err := readSizePrefixed(footerBody)
	if err != nil {
		return nil, err
	}
	return vindex.Decode(payload)
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return errIO(err)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errIO(err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func errIO(err error) error {
	if err == nil {
		return nil
	}
	return tachyonerr.New(tachyonerr.Io, "archivefmt: %v", err)
}
