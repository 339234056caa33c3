package archivefmt

import (
	"encoding/binary"

	"github.com/cockroachdb/swiss"

	"github.com/tachyon-genomics/tachyon/internal/schema"
)

// Schema wraps the archive-wide schema.Schema with a global-key lookup
// index, per spec.md §9's "Per-container global key" note: spec.md §4.1
// names the global_key field a container carries but leaves open how a
// reader resolves it back to a schema entry.
type Schema struct {
	*schema.Schema

	byKey *swiss.Map[uint32, schema.FieldDef]
}

// NewSchema builds the global-key index over sch's INFO and FORMAT field
// definitions.
func NewSchema(sch *schema.Schema) *Schema {
	s := &Schema{Schema: sch, byKey: swiss.New[uint32, schema.FieldDef](len(sch.Info) + len(sch.Format))}
	for _, f := range sch.Info {
		s.byKey.Put(f.Key, f)
	}
	for _, f := range sch.Format {
		s.byKey.Put(f.Key, f)
	}
	return s
}

// ResolveKey looks up the FieldDef a container's global_key names.
func (s *Schema) ResolveKey(key uint32) (schema.FieldDef, bool) {
	return s.byKey.Get(key)
}

// EncodeSchema serializes sch for the global header, per spec.md §6
// "samples: [name], contigs: [(name, length_bp)], info: [(key, type,
// arity)], format: [(key, type, arity)], filter: [key]".
func EncodeSchema(sch *schema.Schema) []byte {
	var buf []byte
	buf = appendStrings(buf, sch.Samples)
	buf = appendUvarint(buf, uint64(len(sch.Contigs)))
	for _, c := range sch.Contigs {
		buf = appendString(buf, c.Name)
		buf = appendUvarint(buf, c.Length)
	}
	buf = appendFieldDefs(buf, sch.Info)
	buf = appendFieldDefs(buf, sch.Format)
	buf = appendUvarint(buf, uint64(len(sch.Filter)))
	for _, f := range sch.Filter {
		buf = appendUvarint(buf, uint64(f.Key))
		buf = appendString(buf, f.Name)
	}
	return buf
}

// DecodeSchema inverts EncodeSchema.
func DecodeSchema(buf []byte) (*schema.Schema, error) {
	r := &byteReader{buf: buf}
	sch := &schema.Schema{}

	samples, err := r.readStrings()
	if err != nil {
		return nil, err
	}
	sch.Samples = samples

	nContigs, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	sch.Contigs = make([]schema.ContigInfo, nContigs)
	for i := range sch.Contigs {
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		length, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		sch.Contigs[i] = schema.ContigInfo{Name: name, Length: length}
	}

	sch.Info, err = r.readFieldDefs()
	if err != nil {
		return nil, err
	}
	sch.Format, err = r.readFieldDefs()
	if err != nil {
		return nil, err
	}

	nFilter, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	sch.Filter = make([]schema.FieldDef, nFilter)
	for i := range sch.Filter {
		key, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		sch.Filter[i] = schema.FieldDef{Key: uint32(key), Name: name}
	}
	return sch, nil
}

func appendFieldDefs(buf []byte, fields []schema.FieldDef) []byte {
	buf = appendUvarint(buf, uint64(len(fields)))
	for _, f := range fields {
		buf = appendUvarint(buf, uint64(f.Key))
		buf = appendString(buf, f.Name)
		buf = append(buf, byte(f.Type))
		buf = appendUvarint(buf, uint64(f.Arity))
	}
	return buf
}

func (r *byteReader) readFieldDefs() ([]schema.FieldDef, error) {
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	out := make([]schema.FieldDef, n)
	for i := range out {
		key, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		kind, err := r.readByte()
		if err != nil {
			return nil, err
		}
		arity, err := r.readUvarint()
		if err != nil {
			return nil, err
		}
		out[i] = schema.FieldDef{Key: uint32(key), Name: name, Type: schema.ValueKind(kind), Arity: int(arity)}
	}
	return out, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendStrings(buf []byte, ss []string) []byte {
	buf = appendUvarint(buf, uint64(len(ss)))
	for _, s := range ss {
		buf = appendString(buf, s)
	}
	return buf
}
