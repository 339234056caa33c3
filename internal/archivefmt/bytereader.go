package archivefmt

import (
	"encoding/binary"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// byteReader is a minimal cursor over an in-memory buffer used to decode
// the global header's schema section; it exists because the schema's
// on-disk shape is a flat sequence of varint-prefixed fields with no
// natural encoding/gob counterpart worth pulling in for this one format.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, tachyonerr.New(tachyonerr.Io, "archivefmt: unexpected end of schema buffer")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, tachyonerr.New(tachyonerr.Io, "archivefmt: malformed varint in schema buffer")
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	n, err := r.readUvarint()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", tachyonerr.New(tachyonerr.Io, "archivefmt: truncated string in schema buffer")
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) readStrings() ([]string, error) {
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
