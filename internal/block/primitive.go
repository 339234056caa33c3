// Package block implements the primitive container described in spec.md
// §4.1: a type-erased append log of homogeneous values with optional
// per-element stride, plus the header that makes the container
// self-describing on disk, and the compression-manager dispatch of §4.5.
package block

// Primitive is the tagged union of primitive widths a Container can hold.
// Width promotion (e.g. Int8 -> Int16) is an explicit state transition, not
// a virtual dispatch: see spec.md §9.
type Primitive uint8

const (
	// PrimitiveBool holds 0/1 values, one byte each until finalized.
	PrimitiveBool Primitive = iota
	PrimitiveInt8
	PrimitiveInt16
	PrimitiveInt32
	PrimitiveInt64
	PrimitiveUint8
	PrimitiveUint16
	PrimitiveUint32
	PrimitiveUint64
	PrimitiveF32
	PrimitiveF64
	// PrimitiveBytes holds length-prefixed byte strings (spec.md §4.4
	// "Literal" allele form uses this; strides count entries, not bytes).
	PrimitiveBytes
)

// Width reports the on-disk byte width of a single element of p, or -1 for
// PrimitiveBytes whose elements are variable length.
func (p Primitive) Width() int {
	switch p {
	case PrimitiveBool, PrimitiveInt8, PrimitiveUint8:
		return 1
	case PrimitiveInt16, PrimitiveUint16:
		return 2
	case PrimitiveInt32, PrimitiveUint32, PrimitiveF32:
		return 4
	case PrimitiveInt64, PrimitiveUint64, PrimitiveF64:
		return 8
	default:
		return -1
	}
}

func (p Primitive) String() string {
	switch p {
	case PrimitiveBool:
		return "bool"
	case PrimitiveInt8:
		return "int8"
	case PrimitiveInt16:
		return "int16"
	case PrimitiveInt32:
		return "int32"
	case PrimitiveInt64:
		return "int64"
	case PrimitiveUint8:
		return "uint8"
	case PrimitiveUint16:
		return "uint16"
	case PrimitiveUint32:
		return "uint32"
	case PrimitiveUint64:
		return "uint64"
	case PrimitiveF32:
		return "f32"
	case PrimitiveF64:
		return "f64"
	case PrimitiveBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// isIntegral reports whether p is one of the signed/unsigned integer
// primitives eligible for width narrowing in finalizePrimitive.
func (p Primitive) isIntegral() bool {
	switch p {
	case PrimitiveInt8, PrimitiveInt16, PrimitiveInt32, PrimitiveInt64,
		PrimitiveUint8, PrimitiveUint16, PrimitiveUint32, PrimitiveUint64:
		return true
	default:
		return false
	}
}
