package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writerBuf is a minimal io.WriterAt over a growable byte slice.
type writerBuf struct {
	data []byte
}

func (b *writerBuf) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if int64(len(b.data)) < end {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:], p)
	return len(p), nil
}

func TestWriteReadRoundtrip(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 4})

	require.NoError(t, w.WriteUint8(0x01))
	require.NoError(t, w.WriteUint16(0x0203))
	require.NoError(t, w.WriteUint32(0x04050607))
	require.NoError(t, w.WriteUint64(0x08090a0b0c0d0e0f))
	require.NoError(t, w.WriteInt32(-7))
	require.NoError(t, w.WriteOffset(0x11223344))

	r := NewReader(bytes.NewReader(buf.data), Config{OffsetSize: 4})

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04050607), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x08090a0b0c0d0e0f), u64)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	off, err := r.ReadOffset()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x11223344), off)
}

func TestBigEndianEncoding(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 4})
	require.NoError(t, w.WriteUint32(1))
	assert.Equal(t, []byte{0, 0, 0, 1}, buf.data)
}

func TestOffsetSizeEight(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 8})
	require.NoError(t, w.WriteOffset(0x1_0000_0000))
	assert.Equal(t, int64(8), w.Pos())

	r := NewReader(bytes.NewReader(buf.data), Config{OffsetSize: 8})
	off, err := r.ReadOffset()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1_0000_0000), off)
}

func TestInvalidOffsetSize(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 3})
	assert.ErrorIs(t, w.WriteOffset(1), ErrInvalidOffsetSize)

	r := NewReader(bytes.NewReader([]byte{0, 0, 0}), Config{OffsetSize: 3})
	_, err := r.ReadOffset()
	assert.ErrorIs(t, err, ErrInvalidOffsetSize)
}

func TestNamePadding(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 4})
	require.NoError(t, w.WriteName("coord"))

	// 4 length bytes + 5 characters padded to 8.
	assert.Equal(t, int64(12), w.Pos())
	assert.Equal(t, []byte{0, 0, 0, 5, 'c', 'o', 'o', 'r', 'd', 0, 0, 0}, buf.data)

	r := NewReader(bytes.NewReader(buf.data), Config{OffsetSize: 4})
	name, err := r.ReadName()
	require.NoError(t, err)
	assert.Equal(t, "coord", name)
	assert.Equal(t, int64(12), r.Pos())
}

func TestNameAlreadyAligned(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 4})
	require.NoError(t, w.WriteName("time"))
	assert.Equal(t, int64(8), w.Pos())
}

func TestReaderAtIndependentPosition(t *testing.T) {
	data := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	r := NewReader(bytes.NewReader(data), Config{OffsetSize: 4})

	r2 := r.At(4)
	v2, err := r2.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v2)

	// Original reader position is untouched.
	v1, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v1)
}

func TestAlignAndPadding(t *testing.T) {
	buf := &writerBuf{}
	w := NewWriter(buf, Config{OffsetSize: 4})
	require.NoError(t, w.WriteBytes([]byte{0xff}))
	require.NoError(t, w.WritePadding(Alignment))
	assert.Equal(t, int64(4), w.Pos())
	assert.Equal(t, []byte{0xff, 0, 0, 0}, buf.data)

	// Aligned position writes no padding.
	require.NoError(t, w.WritePadding(Alignment))
	assert.Equal(t, int64(4), w.Pos())

	r := NewReader(bytes.NewReader(buf.data), Config{OffsetSize: 4})
	r.Skip(1)
	r.Align(Alignment)
	assert.Equal(t, int64(4), r.Pos())
}
