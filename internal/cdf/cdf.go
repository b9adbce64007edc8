// Package cdf reads and writes NetCDF classic format files (CDF-1 and
// CDF-2), the array-file container underneath Exodus II mesh databases.
//
// The classic format is a single header (dimensions, global attributes,
// variable definitions) followed by the fixed-size variable data and then
// the record data, all big-endian and 4-byte aligned. This package models
// the header as parsed structures and provides typed whole-variable reads
// plus a define-then-write-once FileWriter for producing new files.
package cdf

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-exodus/internal/binary"
)

// NetCDF classic file signature: 'C' 'D' 'F' followed by a version byte.
var Magic = []byte{'C', 'D', 'F'}

// Format version bytes.
const (
	Version1 uint8 = 1 // classic, 32-bit variable offsets
	Version2 uint8 = 2 // classic, 64-bit variable offsets
)

// Header list tags.
const (
	tagDimension uint32 = 0x0A
	tagVariable  uint32 = 0x0B
	tagAttribute uint32 = 0x0C
)

// streamingRecs marks an indeterminate record count in the header.
const streamingRecs = 0xFFFFFFFF

// Sanity bounds on header claims. Classic headers are small; the rank
// bound matches the reference library's NC_MAX_VAR_DIMS.
const (
	maxVarDims   = 1024
	maxAttrBytes = 1 << 26
)

// Errors
var (
	ErrNotCDF             = errors.New("not a NetCDF classic file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported NetCDF format version")
	ErrInvalidHeader      = errors.New("invalid NetCDF header structure")
	ErrNotFound           = errors.New("entity not found")
	ErrTypeMismatch       = errors.New("variable type mismatch")
	ErrDuplicate          = errors.New("entity already defined")
)

// Type is a NetCDF external data type.
type Type int32

const (
	Byte   Type = 1
	Char   Type = 2
	Short  Type = 3
	Int    Type = 4
	Float  Type = 5
	Double Type = 6
)

// Size returns the size in bytes of a single value of this type.
func (t Type) Size() int {
	switch t {
	case Byte, Char:
		return 1
	case Short:
		return 2
	case Int, Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

func (t Type) valid() bool {
	return t >= Byte && t <= Double
}

// Dimension is a named array extent. A stored size of zero marks the
// record dimension, whose effective length is the file's record count.
type Dimension struct {
	Name string
	Size int
}

// IsRecord reports whether this is the record (unlimited) dimension.
func (d *Dimension) IsRecord() bool {
	return d.Size == 0
}

// Attribute is a named scalar or vector annotation on a file or variable.
// Value holds a string for Char attributes, a scalar for single-element
// numeric attributes, and a typed slice otherwise.
type Attribute struct {
	Name  string
	Type  Type
	Value any
}

// Variable is one named array in the file.
type Variable struct {
	Name   string
	Type   Type
	DimIDs []int
	Attrs  []Attribute

	// vsize is the stored per-variable (or per-record) byte size, padded.
	vsize int64
	// begin is the file offset of the variable's data (first record slab
	// for record variables).
	begin uint64
}

// Attr returns the named attribute of the variable.
func (v *Variable) Attr(name string) (Attribute, bool) {
	for _, a := range v.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// File is a parsed NetCDF classic file header with read access to data.
type File struct {
	Version uint8
	NumRecs int
	Dims    []*Dimension
	Attrs   []Attribute
	Vars    []*Variable

	reader    *binary.Reader
	recordDim int   // index of the record dimension, -1 if none
	recSize   int64 // byte size of one whole record across record variables
}

// Dim returns the named dimension.
func (f *File) Dim(name string) (*Dimension, bool) {
	for _, d := range f.Dims {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// HasDim reports whether the named dimension exists.
func (f *File) HasDim(name string) bool {
	_, ok := f.Dim(name)
	return ok
}

// DimLength returns the effective length of the named dimension,
// substituting the record count for the record dimension.
func (f *File) DimLength(name string) (int, error) {
	d, ok := f.Dim(name)
	if !ok {
		return 0, fmt.Errorf("dimension %q: %w", name, ErrNotFound)
	}
	if d.IsRecord() {
		return f.NumRecs, nil
	}
	return d.Size, nil
}

// Var returns the named variable.
func (f *File) Var(name string) (*Variable, bool) {
	for _, v := range f.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// HasVar reports whether the named variable exists.
func (f *File) HasVar(name string) bool {
	_, ok := f.Var(name)
	return ok
}

// Attr returns the named global attribute.
func (f *File) Attr(name string) (Attribute, bool) {
	for _, a := range f.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// VarDimNames returns the dimension names of a variable, in order.
func (f *File) VarDimNames(v *Variable) []string {
	names := make([]string, len(v.DimIDs))
	for i, id := range v.DimIDs {
		names[i] = f.Dims[id].Name
	}
	return names
}

// isRecordVar reports whether the variable's leading dimension is the
// record dimension.
func (f *File) isRecordVar(v *Variable) bool {
	return f.recordDim >= 0 && len(v.DimIDs) > 0 && v.DimIDs[0] == f.recordDim
}

// valueCount returns the number of values held by a fixed variable, or
// the per-record value count of a record variable.
func (f *File) valueCount(v *Variable) int {
	count := 1
	for i, id := range v.DimIDs {
		if i == 0 && f.isRecordVar(v) {
			continue
		}
		count *= f.Dims[id].Size
	}
	return count
}

// pad4 rounds a byte count up to the next 4-byte boundary.
func pad4(n int64) int64 {
	if rem := n % 4; rem != 0 {
		return n + 4 - rem
	}
	return n
}
