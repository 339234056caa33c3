package block

import (
	"encoding/binary"
	"math"
)

// FromHeader reconstructs a Container shell from a decoded Header and its
// still-compressed data/strides buffers, ready for Manager.Decompress.
func FromHeader(h Header, compressedData, compressedStrides []byte) *Container {
	return &Container{
		GlobalKey:   h.GlobalKey,
		primitive:   h.Primitive,
		signed:      h.Signed,
		mixedStride: h.MixedStride,
		fixedStride: h.Stride,
		uniform:     h.Uniform,
		strideWidt:  h.StrideWidth,
		nRecords:    int(h.NRecords),
		finalized:   true,
		data:        compressedData,
		strides:     compressedStrides,
		Header:      h,
	}
}

// DecodeStrides returns the per-record element count for each of nRecords
// logical records: from the packed strides buffer if MixedStride, or the
// single fixed Stride repeated nRecords times otherwise.
func (c *Container) DecodeStrides(nRecords int) []int {
	out := make([]int, nRecords)
	if !c.mixedStride {
		for i := range out {
			out[i] = int(c.fixedStride)
		}
		return out
	}
	width := c.strideWidt.Width()
	for i := 0; i < nRecords; i++ {
		out[i] = int(getUintLE(c.strides[i*width:], width))
	}
	return out
}

func getUintLE(buf []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

// DecodeInts decodes every packed integer/bool value present in Data. For a
// uniform container this is exactly one window's worth of values, meant to
// be replicated by the caller across records using DecodeStrides.
func (c *Container) DecodeInts() []int64 {
	width := c.primitive.Width()
	if c.primitive == PrimitiveBool {
		out := make([]int64, len(c.data))
		for i, b := range c.data {
			if b != 0 {
				out[i] = 1
			}
		}
		return out
	}
	n := len(c.data) / width
	out := make([]int64, n)
	signed := c.signed
	for i := 0; i < n; i++ {
		raw := getUintLE(c.data[i*width:], width)
		if signed {
			out[i] = signExtend(raw, width)
		} else {
			out[i] = int64(raw)
		}
	}
	return out
}

func signExtend(raw uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(raw))
	case 2:
		return int64(int16(raw))
	case 4:
		return int64(int32(raw))
	default:
		return int64(raw)
	}
}

// DecodeFloats decodes every packed float value present in Data.
func (c *Container) DecodeFloats() []float64 {
	width := c.primitive.Width()
	n := len(c.data) / width
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if width == 4 {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(c.data[i*4:])))
		} else {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(c.data[i*8:]))
		}
	}
	return out
}

// DecodeByteStrings decodes every length-prefixed byte string present in
// Data, in order.
func (c *Container) DecodeByteStrings() [][]byte {
	var out [][]byte
	buf := c.data
	for len(buf) > 0 {
		n := binary.LittleEndian.Uint16(buf)
		buf = buf[2:]
		out = append(out, buf[:n])
		buf = buf[n:]
	}
	return out
}
