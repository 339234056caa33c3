package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tachyon-genomics/tachyon/internal/tachyonerr"
)

func buildIntContainer(t *testing.T, values []int64) *Container {
	t.Helper()
	c := NewContainer(7, PrimitiveInt64)
	for _, v := range values {
		c.AppendInt(v)
		c.AppendStride(1)
	}
	c.FinalizeUniformity()
	require.NoError(t, c.FinalizePrimitive())
	return c
}

func TestContainer_NarrowsToSmallestWidth(t *testing.T) {
	c := buildIntContainer(t, []int64{1, 2, 3, 250})
	require.Equal(t, PrimitiveUint8, c.Primitive())
}

func TestContainer_SignedWidensOnNegativeValue(t *testing.T) {
	c := buildIntContainer(t, []int64{1, -5, 3})
	require.True(t, c.Signed())
	require.Equal(t, PrimitiveInt8, c.Primitive())
}

func TestContainer_UniformCollapsesRepeatedWindow(t *testing.T) {
	c := buildIntContainer(t, []int64{9, 9, 9, 9})
	require.True(t, c.Uniform())
}

func TestContainer_CompressDecompressRoundTrips(t *testing.T) {
	for _, level := range []int{0, 1, 6, 22} {
		c := buildIntContainer(t, []int64{10, 20, 30, 40, 50})
		m := NewManager(level)
		require.NoError(t, m.Compress(c))

		read := FromHeader(c.Header, c.Data(), c.Strides())
		require.NoError(t, m.Decompress(read))
		require.Equal(t, []int64{10, 20, 30, 40, 50}, read.DecodeInts())
	}
}

func TestContainer_MixedStrideRoundTrips(t *testing.T) {
	c := NewContainer(3, PrimitiveInt64)
	c.AppendInt(1)
	c.AppendStride(1)
	c.AppendInt(2)
	c.AppendInt(3)
	c.AppendStride(2)
	c.FinalizeUniformity()
	require.NoError(t, c.FinalizePrimitive())
	require.True(t, c.MixedStride())

	m := NewManager(6)
	require.NoError(t, m.Compress(c))
	read := FromHeader(c.Header, c.Data(), c.Strides())
	require.NoError(t, m.Decompress(read))
	require.Equal(t, []int{1, 2}, read.DecodeStrides(2))
}

func TestManager_CorruptedDataFailsChecksum(t *testing.T) {
	c := buildIntContainer(t, []int64{1, 2, 3})
	m := NewManager(0) // uncompressed, so corruption is guaranteed to surface via checksum compare
	require.NoError(t, m.Compress(c))

	read := FromHeader(c.Header, append([]byte(nil), c.Data()...), c.Strides())
	read.data[0] ^= 0xFF

	err := m.Decompress(read)
	require.Error(t, err)
	require.Equal(t, tachyonerr.ChecksumMismatch, tachyonerr.Classify(err))
}

func TestManager_UnknownEncoderIDIsFormatUnsupported(t *testing.T) {
	c := buildIntContainer(t, []int64{1})
	m := NewManager(0)
	require.NoError(t, m.Compress(c))
	c.Header.EncoderID = EncoderID(99)

	err := m.Decompress(FromHeader(c.Header, c.Data(), c.Strides()))
	require.Error(t, err)
	require.Equal(t, tachyonerr.FormatUnsupported, tachyonerr.Classify(err))
}

func TestContainer_BytesRoundTrips(t *testing.T) {
	c := NewContainer(5, PrimitiveBytes)
	for _, v := range [][]byte{[]byte("A"), []byte("GT"), []byte("CCC")} {
		c.AppendBytes(v)
		c.AppendStride(1)
	}
	c.FinalizeUniformity()
	require.NoError(t, c.FinalizePrimitive())

	m := NewManager(6)
	require.NoError(t, m.Compress(c))
	read := FromHeader(c.Header, c.Data(), c.Strides())
	require.NoError(t, m.Decompress(read))
	require.Equal(t, [][]byte{[]byte("A"), []byte("GT"), []byte("CCC")}, read.DecodeByteStrings())
}
