package block

import (
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// EncoderID identifies the codec a container was compressed with (the
// archive's global header and index footer are compressed by
// internal/archivefmt with DataDog/zstd and carry no EncoderID). Concrete codecs are
// pluggable per spec.md §4.5 ("codecs operate on opaque byte buffers");
// EncoderNone..EncoderZstd are the codecs Tachyon ships by default, wired
// to the klauspost/snappy stack named in the teacher's go.mod.
type EncoderID uint8

const (
	// EncoderNone stores bytes uncompressed (used for uniform containers
	// and when the compression level is 0 or below).
	EncoderNone EncoderID = iota
	// EncoderSnappy is github.com/golang/snappy.
	EncoderSnappy
	// EncoderS2 is github.com/klauspost/compress/s2, snappy-compatible but
	// faster at comparable ratios; used for the middle compression-level
	// band.
	EncoderS2
	// EncoderZstd is github.com/klauspost/compress/zstd, used for the
	// higher compression-level band.
	EncoderZstd
)

// Codec is the {compress, decompress} pair spec.md §4.5 treats as an
// external, pluggable collaborator of the compression manager.
type Codec interface {
	Compress(dst, src []byte) []byte
	Decompress(src []byte) ([]byte, error)
}

type noneCodec struct{}

func (noneCodec) Compress(dst, src []byte) []byte { return append(dst[:0], src...) }
func (noneCodec) Decompress(src []byte) ([]byte, error) {
	return append([]byte(nil), src...), nil
}

type snappyCodec struct{}

func (snappyCodec) Compress(dst, src []byte) []byte { return snappy.Encode(dst, src) }
func (snappyCodec) Decompress(src []byte) ([]byte, error) {
	return snappy.Decode(nil, src)
}

type s2Codec struct{}

func (s2Codec) Compress(dst, src []byte) []byte { return s2.Encode(dst, src) }
func (s2Codec) Decompress(src []byte) ([]byte, error) {
	return s2.Decode(nil, src)
}

type zstdCodec struct {
	level zstd.EncoderLevel
}

func (z zstdCodec) Compress(dst, src []byte) []byte {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		panic(err) // fixed, always-valid level constant
	}
	out := enc.EncodeAll(src, dst[:0])
	enc.Close()
	return out
}

func (z zstdCodec) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(src, nil)
}

var codecs = map[EncoderID]Codec{
	EncoderNone:   noneCodec{},
	EncoderSnappy: snappyCodec{},
	EncoderS2:     s2Codec{},
	EncoderZstd:   zstdCodec{level: zstd.SpeedBestCompression},
}

// codecFor resolves a recognized EncoderID to its Codec, or
// FormatUnsupported per spec.md §4.5 "On decode, any id not recognized by
// the reader is a FormatUnsupported error."
func codecFor(id EncoderID) (Codec, error) {
	c, ok := codecs[id]
	if !ok {
		return nil, tachyonerr.New(tachyonerr.FormatUnsupported, "block: unrecognized encoder id %d", id)
	}
	return c, nil
}

// selectEncoder maps the archive-wide compression level (spec.md §6's
// --compression-level, 1..22 per spec.md §8) onto one of the codecs above.
// Level <= 0 means "store uncompressed".
func selectEncoder(level int) EncoderID {
	switch {
	case level <= 0:
		return EncoderNone
	case level == 1:
		return EncoderSnappy
	case level <= 9:
		return EncoderS2
	default:
		return EncoderZstd
	}
}

// Manager dispatches per-container compression, per spec.md §4.5: it
// compresses the data and strides buffers independently, each recording its
// own encoder id and lengths.
type Manager struct {
	Level int
}

// NewManager returns a Manager compressing at the given level (1..22).
func NewManager(level int) *Manager { return &Manager{Level: level} }

// Compress finalizes c's Header and replaces Data/Strides with their
// compressed form. c must already have been through FinalizeUniformity and
// FinalizePrimitive.
func (m *Manager) Compress(c *Container) error {
	if !c.finalized {
		return errNotFinalized
	}
	h := &c.Header
	h.Signed = c.signed
	h.MixedStride = c.mixedStride
	h.Primitive = c.primitive
	h.StrideWidth = c.strideWidt
	h.Uniform = c.uniform
	h.GlobalKey = c.GlobalKey
	h.NRecords = uint32(c.nRecords)
	if c.mixedStride {
		h.Stride = -1
	} else {
		h.Stride = c.fixedStride
	}

	h.Checksum = Checksum(c.data)
	h.UncompressedLen = uint32(len(c.data))
	if c.uniform {
		// spec.md §4.1/§4.5: uniform containers skip data compression but
		// still populate lengths.
		h.EncoderID = EncoderNone
		h.CompressedLen = h.UncompressedLen
	} else {
		id := selectEncoder(m.Level)
		codec, err := codecFor(id)
		if err != nil {
			return err
		}
		compressed := codec.Compress(nil, c.data)
		h.EncoderID = id
		h.CompressedLen = uint32(len(compressed))
		c.data = compressed
	}

	if c.strides != nil {
		h.StridesChecksum = Checksum(c.strides)
		h.UncompressedStridesLen = uint32(len(c.strides))
		id := selectEncoder(m.Level)
		codec, err := codecFor(id)
		if err != nil {
			return err
		}
		compressed := codec.Compress(nil, c.strides)
		h.StridesEnc = id
		h.CompressedStridesLen = uint32(len(compressed))
		c.strides = compressed
	}
	return nil
}

// Decompress inverts Compress: it decodes Data/Strides using the codec
// named in c.Header and verifies the recorded checksums, returning
// ChecksumMismatch on any disagreement per spec.md §4.1.
func (m *Manager) Decompress(c *Container) error {
	h := c.Header
	codec, err := codecFor(h.EncoderID)
	if err != nil {
		return err
	}
	var data []byte
	if h.Uniform {
		data = append([]byte(nil), c.data...)
	} else {
		data, err = codec.Decompress(c.data)
		if err != nil {
			return errors.Wrap(err, "block: decompress data")
		}
	}
	if uint32(len(data)) != h.UncompressedLen {
		return tachyonerr.New(tachyonerr.ChecksumMismatch, "block: uncompressed length mismatch: got %d want %d", len(data), h.UncompressedLen)
	}
	if Checksum(data) != h.Checksum {
		return tachyonerr.New(tachyonerr.ChecksumMismatch, "block: data checksum mismatch for global key %d", c.GlobalKey)
	}
	c.data = data

	if c.strides != nil {
		stridesCodec, err := codecFor(h.StridesEnc)
		if err != nil {
			return err
		}
		strides, err := stridesCodec.Decompress(c.strides)
		if err != nil {
			return errors.Wrap(err, "block: decompress strides")
		}
		if Checksum(strides) != h.StridesChecksum {
			return tachyonerr.New(tachyonerr.ChecksumMismatch, "block: strides checksum mismatch for global key %d", c.GlobalKey)
		}
		c.strides = strides
	}
	return nil
}
