// Package binary provides low-level binary I/O for NetCDF classic file
// parsing and writing. NetCDF headers are big-endian with every entity
// padded to a 4-byte boundary; variable begin offsets are 4 bytes in
// CDF-1 files and 8 bytes in CDF-2 files.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidOffsetSize is returned when an invalid offset size is specified.
var ErrInvalidOffsetSize = errors.New("invalid offset size: must be 4 or 8")

// Alignment is the NetCDF classic padding boundary.
const Alignment = 4

// Reader provides methods for reading NetCDF classic binary data with a
// variable-width begin-offset field.
type Reader struct {
	r          io.ReaderAt
	offsetSize int
	pos        int64
}

// Config holds reader/writer configuration, derived from the format
// version byte in the file magic.
type Config struct {
	OffsetSize int // 4 (CDF-1) or 8 (CDF-2) bytes
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{
		r:          r,
		offsetSize: cfg.OffsetSize,
		pos:        0,
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		r:          r.r,
		offsetSize: r.offsetSize,
		pos:        offset,
	}
}

// WithOffsetSize returns a new reader with an updated offset size.
// This is used after parsing the magic to configure the correct size.
func (r *Reader) WithOffsetSize(offsetSize int) *Reader {
	return &Reader{
		r:          r.r,
		offsetSize: offsetSize,
		pos:        r.pos,
	}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := r.r.ReadAt(buf, r.pos)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint64 reads a big-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ReadInt32 reads a big-endian signed 32-bit integer. NetCDF header
// counts and sizes are signed 32-bit values.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadOffset reads a variable begin offset using the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	switch r.offsetSize {
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	case 8:
		return r.ReadUint64()
	default:
		return 0, ErrInvalidOffsetSize
	}
}

// ReadPaddedBytes reads n bytes and then skips past the zero padding to
// the next 4-byte boundary.
func (r *Reader) ReadPaddedBytes(n int) ([]byte, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	r.Align(Alignment)
	return buf, nil
}

// ReadName reads a NetCDF name: a 4-byte character count followed by
// that many bytes, padded to a 4-byte boundary.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.New("negative name length")
	}
	buf, err := r.ReadPaddedBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Align advances the position to the next multiple of alignment.
// If already aligned, the position is unchanged.
func (r *Reader) Align(alignment int64) {
	if alignment <= 1 {
		return
	}
	if remainder := r.pos % alignment; remainder != 0 {
		r.pos += alignment - remainder
	}
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := r.r.ReadAt(buf, r.pos)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int {
	return r.offsetSize
}
