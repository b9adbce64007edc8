package cdf

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-exodus/internal/binary"
)

// Open parses the header of a NetCDF classic file and returns read access
// to its variables. The reader must remain valid for the lifetime of the
// returned File.
func Open(r io.ReaderAt) (*File, error) {
	br := binary.NewReader(r, binary.Config{OffsetSize: 4})

	magic, err := br.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading signature: %w", err)
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] {
		return nil, ErrNotCDF
	}
	version := magic[3]
	switch version {
	case Version1:
		// 32-bit offsets, the default reader configuration
	case Version2:
		br = br.WithOffsetSize(8)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	f := &File{
		Version:   version,
		reader:    br,
		recordDim: -1,
	}

	recs, err := br.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading record count: %w", err)
	}
	if recs != streamingRecs {
		f.NumRecs = int(recs)
	}

	if err := f.readDimList(br); err != nil {
		return nil, err
	}

	attrs, err := readAttrList(br)
	if err != nil {
		return nil, fmt.Errorf("reading global attributes: %w", err)
	}
	f.Attrs = attrs

	if err := f.readVarList(br); err != nil {
		return nil, err
	}

	f.recSize = f.computeRecSize()
	return f, nil
}

// readTag reads a list tag and element count. An absent list is encoded
// as two zero words.
func readTag(br *binary.Reader, want uint32) (int, error) {
	tag, err := br.ReadUint32()
	if err != nil {
		return 0, err
	}
	n, err := br.ReadUint32()
	if err != nil {
		return 0, err
	}
	if tag == 0 && n == 0 {
		return 0, nil
	}
	if tag != want {
		return 0, fmt.Errorf("%w: tag 0x%02X, expected 0x%02X", ErrInvalidHeader, tag, want)
	}
	return int(n), nil
}

func (f *File) readDimList(br *binary.Reader) error {
	n, err := readTag(br, tagDimension)
	if err != nil {
		return fmt.Errorf("reading dimension list: %w", err)
	}
	for i := 0; i < n; i++ {
		name, err := br.ReadName()
		if err != nil {
			return fmt.Errorf("reading dimension %d name: %w", i, err)
		}
		size, err := br.ReadInt32()
		if err != nil {
			return fmt.Errorf("reading dimension %q size: %w", name, err)
		}
		if size < 0 {
			return fmt.Errorf("%w: dimension %q has negative size", ErrInvalidHeader, name)
		}
		if size == 0 {
			if f.recordDim >= 0 {
				return fmt.Errorf("%w: multiple record dimensions", ErrInvalidHeader)
			}
			f.recordDim = i
		}
		f.Dims = append(f.Dims, &Dimension{Name: name, Size: int(size)})
	}
	return nil
}

func readAttrList(br *binary.Reader) ([]Attribute, error) {
	n, err := readTag(br, tagAttribute)
	if err != nil {
		return nil, err
	}
	var attrs []Attribute
	for i := 0; i < n; i++ {
		name, err := br.ReadName()
		if err != nil {
			return nil, fmt.Errorf("reading attribute %d name: %w", i, err)
		}
		typ, err := br.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("reading attribute %q type: %w", name, err)
		}
		t := Type(typ)
		if !t.valid() {
			return nil, fmt.Errorf("%w: attribute %q has invalid type %d", ErrInvalidHeader, name, typ)
		}
		count, err := br.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("reading attribute %q count: %w", name, err)
		}
		if count < 0 || int64(count)*int64(t.Size()) > maxAttrBytes {
			return nil, fmt.Errorf("%w: attribute %q claims %d values", ErrInvalidHeader, name, count)
		}
		raw, err := br.ReadPaddedBytes(int(count) * t.Size())
		if err != nil {
			return nil, fmt.Errorf("reading attribute %q values: %w", name, err)
		}
		decoded, err := decodeValues(t, raw, int(count))
		if err != nil {
			return nil, fmt.Errorf("decoding attribute %q: %w", name, err)
		}
		attrs = append(attrs, Attribute{Name: name, Type: t, Value: scalarize(t, decoded, int(count))})
	}
	return attrs, nil
}

func (f *File) readVarList(br *binary.Reader) error {
	n, err := readTag(br, tagVariable)
	if err != nil {
		return fmt.Errorf("reading variable list: %w", err)
	}
	for i := 0; i < n; i++ {
		name, err := br.ReadName()
		if err != nil {
			return fmt.Errorf("reading variable %d name: %w", i, err)
		}
		ndims, err := br.ReadInt32()
		if err != nil {
			return fmt.Errorf("reading variable %q rank: %w", name, err)
		}
		if ndims < 0 || ndims > maxVarDims {
			return fmt.Errorf("%w: variable %q claims %d dimensions", ErrInvalidHeader, name, ndims)
		}
		dimIDs := make([]int, ndims)
		for j := range dimIDs {
			id, err := br.ReadInt32()
			if err != nil {
				return fmt.Errorf("reading variable %q dimension ids: %w", name, err)
			}
			if int(id) >= len(f.Dims) || id < 0 {
				return fmt.Errorf("%w: variable %q references dimension %d", ErrInvalidHeader, name, id)
			}
			dimIDs[j] = int(id)
		}
		attrs, err := readAttrList(br)
		if err != nil {
			return fmt.Errorf("reading variable %q attributes: %w", name, err)
		}
		typ, err := br.ReadInt32()
		if err != nil {
			return fmt.Errorf("reading variable %q type: %w", name, err)
		}
		t := Type(typ)
		if !t.valid() {
			return fmt.Errorf("%w: variable %q has invalid type %d", ErrInvalidHeader, name, typ)
		}
		vsize, err := br.ReadInt32()
		if err != nil {
			return fmt.Errorf("reading variable %q size: %w", name, err)
		}
		begin, err := br.ReadOffset()
		if err != nil {
			return fmt.Errorf("reading variable %q offset: %w", name, err)
		}
		f.Vars = append(f.Vars, &Variable{
			Name:   name,
			Type:   t,
			DimIDs: dimIDs,
			Attrs:  attrs,
			vsize:  int64(vsize),
			begin:  begin,
		})
	}
	return nil
}

// computeRecSize returns the byte stride of one whole record. Each record
// variable contributes its per-record slab padded to 4 bytes, except when
// it is the only record variable and narrower than 4 bytes, in which case
// the format packs the slabs without padding.
func (f *File) computeRecSize() int64 {
	var recVars []*Variable
	for _, v := range f.Vars {
		if f.isRecordVar(v) {
			recVars = append(recVars, v)
		}
	}
	if len(recVars) == 1 {
		v := recVars[0]
		if v.Type.Size() < 4 {
			return int64(f.valueCount(v) * v.Type.Size())
		}
	}
	var total int64
	for _, v := range recVars {
		total += pad4(int64(f.valueCount(v) * v.Type.Size()))
	}
	return total
}

// ReadValues reads a variable's entire contents as a typed slice:
// []int8, []byte, []int16, []int32, []float32 or []float64. Record
// variables are returned with all records concatenated in record order.
func (f *File) ReadValues(name string) (any, error) {
	v, ok := f.Var(name)
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	perSlab := f.valueCount(v)
	if !f.isRecordVar(v) {
		raw, err := f.reader.At(int64(v.begin)).ReadBytes(perSlab * v.Type.Size())
		if err != nil {
			return nil, fmt.Errorf("reading variable %q: %w", name, err)
		}
		return decodeValues(v.Type, raw, perSlab)
	}

	slabBytes := perSlab * v.Type.Size()
	raw := make([]byte, 0, slabBytes*f.NumRecs)
	for rec := 0; rec < f.NumRecs; rec++ {
		offset := int64(v.begin) + int64(rec)*f.recSize
		slab, err := f.reader.At(offset).ReadBytes(slabBytes)
		if err != nil {
			return nil, fmt.Errorf("reading variable %q record %d: %w", name, rec, err)
		}
		raw = append(raw, slab...)
	}
	return decodeValues(v.Type, raw, perSlab*f.NumRecs)
}

// ReadInts reads an integral variable (byte, short or int) widened to int64.
func (f *File) ReadInts(name string) ([]int64, error) {
	vals, err := f.ReadValues(name)
	if err != nil {
		return nil, err
	}
	switch v := vals.(type) {
	case []int8:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []int16:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	case []int32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("variable %q: %w: not integral", name, ErrTypeMismatch)
	}
}

// ReadDoubles reads a floating-point variable (float or double) widened
// to float64.
func (f *File) ReadDoubles(name string) ([]float64, error) {
	vals, err := f.ReadValues(name)
	if err != nil {
		return nil, err
	}
	switch v := vals.(type) {
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []float64:
		return v, nil
	default:
		return nil, fmt.Errorf("variable %q: %w: not floating-point", name, ErrTypeMismatch)
	}
}

// ReadString reads a one-dimensional char variable as a NUL-trimmed string.
func (f *File) ReadString(name string) (string, error) {
	vals, err := f.ReadValues(name)
	if err != nil {
		return "", err
	}
	chars, ok := vals.([]byte)
	if !ok {
		return "", fmt.Errorf("variable %q: %w: not char", name, ErrTypeMismatch)
	}
	return trimNul(chars), nil
}

// ReadStringRows reads a char variable whose last dimension is the string
// width, returning one NUL-trimmed string per row.
func (f *File) ReadStringRows(name string) ([]string, error) {
	v, ok := f.Var(name)
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	if v.Type != Char || len(v.DimIDs) < 2 {
		return nil, fmt.Errorf("variable %q: %w: not a char table", name, ErrTypeMismatch)
	}
	vals, err := f.ReadValues(name)
	if err != nil {
		return nil, err
	}
	chars := vals.([]byte)
	width := f.Dims[v.DimIDs[len(v.DimIDs)-1]].Size
	if width <= 0 {
		return nil, fmt.Errorf("variable %q: %w: zero-width rows", name, ErrInvalidHeader)
	}
	rows := make([]string, 0, len(chars)/width)
	for i := 0; i+width <= len(chars); i += width {
		rows = append(rows, trimNul(chars[i:i+width]))
	}
	return rows, nil
}

// trimNul cuts a char payload at the first NUL and strips trailing blanks.
func trimNul(chars []byte) string {
	end := len(chars)
	for i, c := range chars {
		if c == 0 {
			end = i
			break
		}
	}
	for end > 0 && chars[end-1] == ' ' {
		end--
	}
	return string(chars[:end])
}
