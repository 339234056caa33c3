package block

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/crlib/crbytes"
	"github.com/cockroachdb/errors"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

// Container is the primitive container of spec.md §4.1: a pair of byte
// buffers (data, strides) plus a self-describing Header. Values are
// appended through the typed Append* methods while the column is being
// built; Finalize* methods pack the logical values down into the on-disk
// buffers.
type Container struct {
	GlobalKey uint32

	primitive Primitive
	signed    bool

	// Logical, unpacked values. Exactly one of these is populated,
	// depending on primitive; see logicalKind.
	ints   []int64
	floats []float64
	bytes  [][]byte

	// Stride bookkeeping (spec.md §4.1 append_stride/set_stride).
	fixedStride  int64 // -1 once mixedStride is true
	strideCounts []int // per-logical-record element counts, used when mixedStride
	strideSet    bool
	mixedStride  bool
	nRecords     int

	uniform    bool
	finalized  bool
	data       []byte
	strides    []byte
	strideWidt Primitive // width chosen for the packed strides buffer

	Header Header
}

// NewRawContainer wraps an already-serialized byte buffer (used by the
// genotype codec's width-keyed run streams, spec.md §4.3.2) as a finalized
// Container ready for Manager.Compress, bypassing the logical append/
// finalize pipeline that typed columns go through.
func NewRawContainer(globalKey uint32, data []byte) *Container {
	return &Container{
		GlobalKey:   globalKey,
		primitive:   PrimitiveUint8,
		fixedStride: 1,
		nRecords:    len(data),
		finalized:   true,
		data:        data,
	}
}

// NewContainer returns an empty container declared with the given starting
// primitive type. Integral containers keep their declared type while values
// are appended and get their narrowest width in FinalizePrimitive; floats
// may promote F32->F64; the declared type of PrimitiveBytes never changes.
func NewContainer(globalKey uint32, p Primitive) *Container {
	return &Container{
		GlobalKey:   globalKey,
		primitive:   p,
		fixedStride: -1,
	}
}

// Primitive reports the container's current (possibly still-widening)
// primitive type.
func (c *Container) Primitive() Primitive { return c.primitive }

// NumRecords reports how many append_stride calls have been made, i.e. how
// many logical records this container has seen.
func (c *Container) NumRecords() int { return c.nRecords }

// AppendInt appends a signed or unsigned integer value and flips Signed on
// the first negative value. It does not change the primitive width;
// FinalizePrimitive picks the width from the observed min/max.
func (c *Container) AppendInt(v int64) {
	if c.finalized {
		panic("block: append to finalized container")
	}
	if !c.primitive.isIntegral() && c.primitive != PrimitiveBool {
		panic("block: AppendInt on non-integral container")
	}
	if v < 0 {
		c.signed = true
	}
	c.ints = append(c.ints, v)
}

// AppendFloat appends a floating-point value, promoting F32->F64 if v does
// not survive a float32 round trip.
func (c *Container) AppendFloat(v float64) {
	if c.finalized {
		panic("block: append to finalized container")
	}
	if c.primitive != PrimitiveF32 && c.primitive != PrimitiveF64 {
		panic("block: AppendFloat on non-float container")
	}
	if c.primitive == PrimitiveF32 && float64(float32(v)) != v && !math.IsNaN(v) {
		c.primitive = PrimitiveF64
	}
	c.floats = append(c.floats, v)
}

// AppendBytes appends a byte-string value (an allele, a name, ...).
func (c *Container) AppendBytes(v []byte) {
	if c.finalized {
		panic("block: append to finalized container")
	}
	if c.primitive != PrimitiveBytes {
		panic("block: AppendBytes on non-bytes container")
	}
	owned := crbytes.Clone(v)
	c.bytes = append(c.bytes, owned)
}

// AppendStride records how many data elements belong to the current logical
// record (spec.md §4.1 append_stride). It is the general, per-record form;
// SetStride is the common-case shortcut when every record shares one stride.
func (c *Container) AppendStride(n int) {
	if c.finalized {
		panic("block: append_stride on finalized container")
	}
	c.strideCounts = append(c.strideCounts, n)
	c.nRecords++
	if !c.mixedStride {
		if !c.strideSet {
			c.fixedStride = int64(n)
			c.strideSet = true
		} else if int64(n) != c.fixedStride {
			c.mixedStride = true
			c.fixedStride = -1
		}
	}
}

// SetStride fixes a single stride for all elements; it switches the
// container to mixed_stride on the first record whose stride disagrees with
// what was previously fixed, per spec.md §4.1.
func (c *Container) SetStride(n int) { c.AppendStride(n) }

// logicalWindow returns, for record index i, the half-open range of
// logical element indices [from, to) belonging to that record. Requires
// NumRecords populated strideCounts.
func (c *Container) logicalWindow(i int) (from, to int) {
	from = 0
	for j := 0; j < i; j++ {
		from += c.strideCounts[j]
	}
	return from, from + c.strideCounts[i]
}

// FinalizeUniformity implements spec.md §4.1 finalize_uniformity: if every
// logical record's window of values is byte-identical to every other
// record's window, the container collapses to a single window plus the
// uniform flag. Mixed-stride containers are never uniform: the shapes of
// their windows already differ record to record.
func (c *Container) FinalizeUniformity() {
	if c.finalized {
		panic("block: finalize_uniformity on finalized container")
	}
	if c.mixedStride || c.nRecords <= 1 {
		return
	}
	firstFrom, firstTo := c.logicalWindow(0)
	firstHash := c.windowHash(firstFrom, firstTo)
	for i := 1; i < c.nRecords; i++ {
		from, to := c.logicalWindow(i)
		if c.windowHash(from, to) != firstHash {
			return
		}
	}
	// Every window hashes identically: collapse to one window. A 64-bit
	// hash collision across every record in the block is the only false
	// positive, astronomically unlikely for the block sizes this format
	// targets; Finalize still round-trips exactly what was in window 0.
	c.collapseToWindow(firstFrom, firstTo)
	c.uniform = true
}

func (c *Container) windowHash(from, to int) uint64 {
	h := xxhash.New()
	var buf [8]byte
	switch {
	case c.ints != nil:
		for _, v := range c.ints[from:to] {
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			h.Write(buf[:])
		}
	case c.floats != nil:
		for _, v := range c.floats[from:to] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	case c.bytes != nil:
		for _, v := range c.bytes[from:to] {
			binary.LittleEndian.PutUint64(buf[:], uint64(len(v)))
			h.Write(buf[:])
			h.Write(v)
		}
	}
	return h.Sum64()
}

func (c *Container) collapseToWindow(from, to int) {
	switch {
	case c.ints != nil:
		c.ints = append([]int64(nil), c.ints[from:to]...)
	case c.floats != nil:
		c.floats = append([]float64(nil), c.floats[from:to]...)
	case c.bytes != nil:
		c.bytes = append([][]byte(nil), c.bytes[from:to]...)
	}
}

// FinalizePrimitive implements spec.md §4.1 finalize_primitive: choose the
// narrowest width that losslessly holds every observed value, and pack the
// logical values into Data/Strides at that width.
func (c *Container) FinalizePrimitive() error {
	if c.finalized {
		panic("block: finalize_primitive on finalized container")
	}
	switch {
	case c.primitive.isIntegral() || c.primitive == PrimitiveBool:
		if err := c.finalizeIntegral(); err != nil {
			return err
		}
	case c.primitive == PrimitiveF32 || c.primitive == PrimitiveF64:
		c.finalizeFloat()
	case c.primitive == PrimitiveBytes:
		c.finalizeBytes()
	default:
		return tachyonerr.New(tachyonerr.ResourceExhausted, "block: unknown primitive %d", c.primitive)
	}
	c.packStrides()
	c.finalized = true
	return nil
}

func (c *Container) finalizeIntegral() error {
	if c.primitive == PrimitiveBool {
		c.data = make([]byte, len(c.ints))
		for i, v := range c.ints {
			if v != 0 {
				c.data[i] = 1
			}
		}
		return nil
	}
	var lo, hi int64
	if len(c.ints) > 0 {
		lo, hi = c.ints[0], c.ints[0]
		for _, v := range c.ints[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	c.primitive = narrowestWidth(lo, hi, c.signed)
	width := c.primitive.Width()
	c.data = make([]byte, len(c.ints)*width)
	for i, v := range c.ints {
		putIntLE(c.data[i*width:], v, width)
	}
	return nil
}

// narrowestWidth picks the smallest integer Primitive that holds every
// value in [lo, hi], per spec.md §3 "Primitive width is the narrowest
// signed/unsigned integer... that losslessly holds every value written".
func narrowestWidth(lo, hi int64, signed bool) Primitive {
	if !signed {
		switch {
		case hi <= 0xFF:
			return PrimitiveUint8
		case hi <= 0xFFFF:
			return PrimitiveUint16
		case hi <= 0xFFFFFFFF:
			return PrimitiveUint32
		default:
			return PrimitiveUint64
		}
	}
	switch {
	case lo >= -0x80 && hi <= 0x7F:
		return PrimitiveInt8
	case lo >= -0x8000 && hi <= 0x7FFF:
		return PrimitiveInt16
	case lo >= -0x80000000 && hi <= 0x7FFFFFFF:
		return PrimitiveInt32
	default:
		return PrimitiveInt64
	}
}

func putIntLE(buf []byte, v int64, width int) {
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
}

func (c *Container) finalizeFloat() {
	width := c.primitive.Width()
	c.data = make([]byte, len(c.floats)*width)
	for i, v := range c.floats {
		if width == 4 {
			binary.LittleEndian.PutUint32(c.data[i*4:], math.Float32bits(float32(v)))
		} else {
			binary.LittleEndian.PutUint64(c.data[i*8:], math.Float64bits(v))
		}
	}
}

func (c *Container) finalizeBytes() {
	var out []byte
	for _, v := range c.bytes {
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(v)))
		out = append(out, lenBuf[:]...)
		out = append(out, v...)
	}
	c.data = out
}

func (c *Container) packStrides() {
	if !c.mixedStride {
		c.strides = nil
		return
	}
	hi := 0
	for _, n := range c.strideCounts {
		if n > hi {
			hi = n
		}
	}
	c.strideWidt = narrowestWidth(0, int64(hi), false)
	width := c.strideWidt.Width()
	c.strides = make([]byte, len(c.strideCounts)*width)
	for i, n := range c.strideCounts {
		putIntLE(c.strides[i*width:], int64(n), width)
	}
}

// Data returns the finalized, uncompressed data buffer.
func (c *Container) Data() []byte { return c.data }

// Strides returns the finalized, uncompressed strides buffer (nil unless
// MixedStride()).
func (c *Container) Strides() []byte { return c.strides }

// Uniform reports whether FinalizeUniformity collapsed this container.
func (c *Container) Uniform() bool { return c.uniform }

// MixedStride reports whether this container has a per-record stride.
func (c *Container) MixedStride() bool { return c.mixedStride }

// Stride returns the fixed stride, or -1 if MixedStride.
func (c *Container) Stride() int64 { return c.fixedStride }

// Signed reports whether any appended value was negative.
func (c *Container) Signed() bool { return c.signed }

var errNotFinalized = errors.New("block: container not finalized")
