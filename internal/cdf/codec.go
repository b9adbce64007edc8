package cdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decodeValues converts raw big-endian bytes into a typed Go slice of n
// values: []int8, []byte (char), []int16, []int32, []float32 or []float64.
func decodeValues(t Type, raw []byte, n int) (any, error) {
	if len(raw) < n*t.Size() {
		return nil, fmt.Errorf("%w: %d bytes for %d %s values", ErrInvalidHeader, len(raw), n, t)
	}
	switch t {
	case Byte:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out, nil
	case Char:
		out := make([]byte, n)
		copy(out, raw[:n])
		return out, nil
	case Short:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case Int:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case Float:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case Double:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, t)
	}
}

// encodeValues converts a typed Go slice into big-endian bytes. The slice
// type must match the NetCDF type exactly.
func encodeValues(t Type, data any) ([]byte, error) {
	switch t {
	case Byte:
		vals, ok := data.([]int8)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals))
		for i, v := range vals {
			out[i] = byte(v)
		}
		return out, nil
	case Char:
		vals, ok := data.([]byte)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals))
		copy(out, vals)
		return out, nil
	case Short:
		vals, ok := data.([]int16)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals)*2)
		for i, v := range vals {
			binary.BigEndian.PutUint16(out[i*2:], uint16(v))
		}
		return out, nil
	case Int:
		vals, ok := data.([]int32)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.BigEndian.PutUint32(out[i*4:], uint32(v))
		}
		return out, nil
	case Float:
		vals, ok := data.([]float32)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals)*4)
		for i, v := range vals {
			binary.BigEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out, nil
	case Double:
		vals, ok := data.([]float64)
		if !ok {
			return nil, typeError(t, data)
		}
		out := make([]byte, len(vals)*8)
		for i, v := range vals {
			binary.BigEndian.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, t)
	}
}

// valueLen returns the element count of a typed slice for the given type.
func valueLen(t Type, data any) (int, error) {
	switch t {
	case Byte:
		if vals, ok := data.([]int8); ok {
			return len(vals), nil
		}
	case Char:
		if vals, ok := data.([]byte); ok {
			return len(vals), nil
		}
	case Short:
		if vals, ok := data.([]int16); ok {
			return len(vals), nil
		}
	case Int:
		if vals, ok := data.([]int32); ok {
			return len(vals), nil
		}
	case Float:
		if vals, ok := data.([]float32); ok {
			return len(vals), nil
		}
	case Double:
		if vals, ok := data.([]float64); ok {
			return len(vals), nil
		}
	}
	return 0, typeError(t, data)
}

func typeError(t Type, data any) error {
	return fmt.Errorf("%w: %T for %s variable", ErrTypeMismatch, data, t)
}

// normalizeAttr converts a caller-supplied attribute value (scalar, slice
// or string) into its NetCDF type and canonical slice representation.
func normalizeAttr(name string, value any) (Attribute, any, error) {
	switch v := value.(type) {
	case string:
		return Attribute{Name: name, Type: Char, Value: v}, []byte(v), nil
	case []byte:
		return Attribute{Name: name, Type: Char, Value: string(v)}, v, nil
	case int8:
		return Attribute{Name: name, Type: Byte, Value: v}, []int8{v}, nil
	case []int8:
		return Attribute{Name: name, Type: Byte, Value: v}, v, nil
	case int16:
		return Attribute{Name: name, Type: Short, Value: v}, []int16{v}, nil
	case []int16:
		return Attribute{Name: name, Type: Short, Value: v}, v, nil
	case int32:
		return Attribute{Name: name, Type: Int, Value: v}, []int32{v}, nil
	case int:
		return Attribute{Name: name, Type: Int, Value: int32(v)}, []int32{int32(v)}, nil
	case []int32:
		return Attribute{Name: name, Type: Int, Value: v}, v, nil
	case float32:
		return Attribute{Name: name, Type: Float, Value: v}, []float32{v}, nil
	case []float32:
		return Attribute{Name: name, Type: Float, Value: v}, v, nil
	case float64:
		return Attribute{Name: name, Type: Double, Value: v}, []float64{v}, nil
	case []float64:
		return Attribute{Name: name, Type: Double, Value: v}, v, nil
	default:
		return Attribute{}, nil, fmt.Errorf("%w: unsupported attribute value %T", ErrTypeMismatch, value)
	}
}

// scalarize collapses a decoded one-element numeric slice to its scalar,
// and a char payload to a string, for attribute convenience access.
func scalarize(t Type, decoded any, n int) any {
	if t == Char {
		return string(decoded.([]byte))
	}
	if n != 1 {
		return decoded
	}
	switch v := decoded.(type) {
	case []int8:
		return v[0]
	case []int16:
		return v[0]
	case []int32:
		return v[0]
	case []float32:
		return v[0]
	case []float64:
		return v[0]
	default:
		return decoded
	}
}
