package cdf

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-exodus/internal/binary"
)

// FileWriter assembles a complete NetCDF classic file in memory and
// serializes it in one pass. The classic format interleaves no data with
// its header, so all dimensions, attributes and variable contents must be
// supplied before WriteTo.
type FileWriter struct {
	version uint8
	dims    []*Dimension
	attrs   []attrEntry
	vars    []*writerVar
	numRecs int
}

type attrEntry struct {
	attr  Attribute
	raw   []byte
	count int
}

type writerVar struct {
	name   string
	typ    Type
	dimIDs []int
	attrs  []attrEntry

	record  bool
	count   int // fixed: total values; record: values per record
	data    []byte
	hasData bool
}

// NewFileWriter creates a writer for the given format version.
func NewFileWriter(version uint8) (*FileWriter, error) {
	if version != Version1 && version != Version2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return &FileWriter{version: version}, nil
}

// DefineDimension adds a dimension. A size of zero defines the record
// dimension; at most one is allowed.
func (w *FileWriter) DefineDimension(name string, size int) error {
	if _, ok := w.dimID(name); ok {
		return fmt.Errorf("dimension %q: %w", name, ErrDuplicate)
	}
	if size < 0 {
		return fmt.Errorf("dimension %q: negative size %d", name, size)
	}
	if size == 0 {
		for _, d := range w.dims {
			if d.IsRecord() {
				return fmt.Errorf("dimension %q: %w: record dimension already defined", name, ErrDuplicate)
			}
		}
	}
	w.dims = append(w.dims, &Dimension{Name: name, Size: size})
	return nil
}

// HasDimension reports whether the named dimension has been defined.
func (w *FileWriter) HasDimension(name string) bool {
	_, ok := w.dimID(name)
	return ok
}

func (w *FileWriter) dimID(name string) (int, bool) {
	for i, d := range w.dims {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}

// PutAttribute sets a global attribute, replacing any previous value.
func (w *FileWriter) PutAttribute(name string, value any) error {
	entry, err := makeAttr(name, value)
	if err != nil {
		return err
	}
	for i := range w.attrs {
		if w.attrs[i].attr.Name == name {
			w.attrs[i] = entry
			return nil
		}
	}
	w.attrs = append(w.attrs, entry)
	return nil
}

// DefineVariable adds a variable over previously defined dimensions. The
// record dimension, if used, must be the leading dimension.
func (w *FileWriter) DefineVariable(name string, t Type, dimNames []string) error {
	if !t.valid() {
		return fmt.Errorf("variable %q: invalid type %d", name, int32(t))
	}
	if _, ok := w.varByName(name); ok {
		return fmt.Errorf("variable %q: %w", name, ErrDuplicate)
	}
	v := &writerVar{name: name, typ: t, count: 1}
	for i, dn := range dimNames {
		id, ok := w.dimID(dn)
		if !ok {
			return fmt.Errorf("variable %q: dimension %q: %w", name, dn, ErrNotFound)
		}
		d := w.dims[id]
		if d.IsRecord() {
			if i != 0 {
				return fmt.Errorf("variable %q: record dimension %q must lead", name, dn)
			}
			v.record = true
		} else {
			v.count *= d.Size
		}
		v.dimIDs = append(v.dimIDs, id)
	}
	w.vars = append(w.vars, v)
	return nil
}

// HasVariable reports whether the named variable has been defined.
func (w *FileWriter) HasVariable(name string) bool {
	_, ok := w.varByName(name)
	return ok
}

func (w *FileWriter) varByName(name string) (*writerVar, bool) {
	for _, v := range w.vars {
		if v.name == name {
			return v, true
		}
	}
	return nil, false
}

// PutVariableAttribute sets an attribute on a defined variable.
func (w *FileWriter) PutVariableAttribute(varName, name string, value any) error {
	v, ok := w.varByName(varName)
	if !ok {
		return fmt.Errorf("variable %q: %w", varName, ErrNotFound)
	}
	entry, err := makeAttr(name, value)
	if err != nil {
		return err
	}
	for i := range v.attrs {
		if v.attrs[i].attr.Name == name {
			v.attrs[i] = entry
			return nil
		}
	}
	v.attrs = append(v.attrs, entry)
	return nil
}

func makeAttr(name string, value any) (attrEntry, error) {
	attr, canonical, err := normalizeAttr(name, value)
	if err != nil {
		return attrEntry{}, err
	}
	count, err := valueLen(attr.Type, canonical)
	if err != nil {
		return attrEntry{}, err
	}
	raw, err := encodeValues(attr.Type, canonical)
	if err != nil {
		return attrEntry{}, err
	}
	return attrEntry{attr: attr, raw: raw, count: count}, nil
}

// PutValues stores a variable's contents. The slice type must match the
// variable's NetCDF type. Record variables take all records concatenated;
// the record count is derived from the data length and must agree across
// record variables.
func (w *FileWriter) PutValues(name string, data any) error {
	v, ok := w.varByName(name)
	if !ok {
		return fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	n, err := valueLen(v.typ, data)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	if v.record {
		if v.count == 0 {
			if n != 0 {
				return fmt.Errorf("variable %q: %d values for empty record slab", name, n)
			}
		} else {
			if n%v.count != 0 {
				return fmt.Errorf("variable %q: %d values is not a whole number of records of %d", name, n, v.count)
			}
			recs := n / v.count
			if w.numRecs != 0 && recs != w.numRecs && n != 0 {
				return fmt.Errorf("variable %q: %d records, file has %d", name, recs, w.numRecs)
			}
			if recs > w.numRecs {
				w.numRecs = recs
			}
		}
	} else if n != v.count {
		return fmt.Errorf("variable %q: %d values, expected %d", name, n, v.count)
	}
	raw, err := encodeValues(v.typ, data)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	v.data = raw
	v.hasData = true
	return nil
}

// PutInts stores int64 values into an integral variable, narrowing to the
// variable's declared type.
func (w *FileWriter) PutInts(name string, vals []int64) error {
	v, ok := w.varByName(name)
	if !ok {
		return fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	switch v.typ {
	case Byte:
		out := make([]int8, len(vals))
		for i, x := range vals {
			out[i] = int8(x)
		}
		return w.PutValues(name, out)
	case Short:
		out := make([]int16, len(vals))
		for i, x := range vals {
			out[i] = int16(x)
		}
		return w.PutValues(name, out)
	case Int:
		out := make([]int32, len(vals))
		for i, x := range vals {
			out[i] = int32(x)
		}
		return w.PutValues(name, out)
	default:
		return fmt.Errorf("variable %q: %w: not integral", name, ErrTypeMismatch)
	}
}

// PutDoubles stores float64 values into a floating-point variable.
func (w *FileWriter) PutDoubles(name string, vals []float64) error {
	v, ok := w.varByName(name)
	if !ok {
		return fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	switch v.typ {
	case Float:
		out := make([]float32, len(vals))
		for i, x := range vals {
			out[i] = float32(x)
		}
		return w.PutValues(name, out)
	case Double:
		return w.PutValues(name, append([]float64(nil), vals...))
	default:
		return fmt.Errorf("variable %q: %w: not floating-point", name, ErrTypeMismatch)
	}
}

// PutStringRows stores one NUL-padded row per string into a char table
// variable whose last dimension is the row width.
func (w *FileWriter) PutStringRows(name string, rows []string) error {
	v, ok := w.varByName(name)
	if !ok {
		return fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	if v.typ != Char || len(v.dimIDs) < 2 {
		return fmt.Errorf("variable %q: %w: not a char table", name, ErrTypeMismatch)
	}
	width := w.dims[v.dimIDs[len(v.dimIDs)-1]].Size
	out := make([]byte, 0, len(rows)*width)
	for _, row := range rows {
		if len(row) > width {
			return fmt.Errorf("variable %q: row %q exceeds width %d", name, row, width)
		}
		padded := make([]byte, width)
		copy(padded, row)
		out = append(out, padded...)
	}
	return w.PutValues(name, out)
}

// offsetSize returns the begin-offset width for the writer's version.
func (w *FileWriter) offsetSize() int {
	if w.version == Version2 {
		return 8
	}
	return 4
}

func nameSize(name string) int64 {
	return 4 + pad4(int64(len(name)))
}

func attrListSize(attrs []attrEntry) int64 {
	size := int64(8)
	for _, a := range attrs {
		size += nameSize(a.attr.Name) + 8 + pad4(int64(len(a.raw)))
	}
	return size
}

// headerSize returns the byte length of the serialized header.
func (w *FileWriter) headerSize() int64 {
	size := int64(8) // magic + numrecs
	size += 8        // dimension list tag
	for _, d := range w.dims {
		size += nameSize(d.Name) + 4
	}
	size += attrListSize(w.attrs)
	size += 8 // variable list tag
	for _, v := range w.vars {
		size += nameSize(v.name) + 4 + int64(4*len(v.dimIDs))
		size += attrListSize(v.attrs)
		size += 8 + int64(w.offsetSize()) // type + vsize + begin
	}
	return size
}

// slabSize returns the padded on-disk byte size of a variable's fixed
// data or per-record slab, honoring the single-record-variable packing
// exception for sub-word types.
func (w *FileWriter) slabSize(v *writerVar) int64 {
	raw := int64(v.count * v.typ.Size())
	if v.record && v.typ.Size() < 4 && w.recordVarCount() == 1 {
		return raw
	}
	return pad4(raw)
}

func (w *FileWriter) recordVarCount() int {
	n := 0
	for _, v := range w.vars {
		if v.record {
			n++
		}
	}
	return n
}

// WriteTo serializes the file. Variables with no stored data are
// zero-filled.
func (w *FileWriter) WriteTo(out io.WriterAt) error {
	// Lay out data: fixed variables first, then the record section.
	offset := w.headerSize()
	begins := make([]uint64, len(w.vars))
	for i, v := range w.vars {
		if v.record {
			continue
		}
		begins[i] = uint64(offset)
		offset += w.slabSize(v)
	}
	for i, v := range w.vars {
		if !v.record {
			continue
		}
		begins[i] = uint64(offset)
		offset += w.slabSize(v)
	}

	bw := binary.NewWriter(out, binary.Config{OffsetSize: w.offsetSize()})
	if err := w.writeHeader(bw, begins); err != nil {
		return err
	}
	if err := w.writeData(bw, begins); err != nil {
		return err
	}
	return nil
}

func (w *FileWriter) writeHeader(bw *binary.Writer, begins []uint64) error {
	if err := bw.WriteBytes([]byte{Magic[0], Magic[1], Magic[2], w.version}); err != nil {
		return fmt.Errorf("writing signature: %w", err)
	}
	if err := bw.WriteUint32(uint32(w.numRecs)); err != nil {
		return fmt.Errorf("writing record count: %w", err)
	}

	if err := writeTag(bw, tagDimension, len(w.dims)); err != nil {
		return err
	}
	for _, d := range w.dims {
		if err := bw.WriteName(d.Name); err != nil {
			return fmt.Errorf("writing dimension %q: %w", d.Name, err)
		}
		if err := bw.WriteInt32(int32(d.Size)); err != nil {
			return fmt.Errorf("writing dimension %q size: %w", d.Name, err)
		}
	}

	if err := writeAttrList(bw, w.attrs); err != nil {
		return fmt.Errorf("writing global attributes: %w", err)
	}

	if err := writeTag(bw, tagVariable, len(w.vars)); err != nil {
		return err
	}
	for i, v := range w.vars {
		if err := bw.WriteName(v.name); err != nil {
			return fmt.Errorf("writing variable %q: %w", v.name, err)
		}
		if err := bw.WriteInt32(int32(len(v.dimIDs))); err != nil {
			return err
		}
		for _, id := range v.dimIDs {
			if err := bw.WriteInt32(int32(id)); err != nil {
				return err
			}
		}
		if err := writeAttrList(bw, v.attrs); err != nil {
			return fmt.Errorf("writing variable %q attributes: %w", v.name, err)
		}
		if err := bw.WriteInt32(int32(v.typ)); err != nil {
			return err
		}
		if err := bw.WriteInt32(int32(w.slabSize(v))); err != nil {
			return err
		}
		if err := bw.WriteOffset(begins[i]); err != nil {
			return fmt.Errorf("writing variable %q offset: %w", v.name, err)
		}
	}
	return nil
}

func writeTag(bw *binary.Writer, tag uint32, n int) error {
	if n == 0 {
		// Absent list: two zero words.
		if err := bw.WriteUint32(0); err != nil {
			return err
		}
		return bw.WriteUint32(0)
	}
	if err := bw.WriteUint32(tag); err != nil {
		return err
	}
	return bw.WriteUint32(uint32(n))
}

func writeAttrList(bw *binary.Writer, attrs []attrEntry) error {
	if err := writeTag(bw, tagAttribute, len(attrs)); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := bw.WriteName(a.attr.Name); err != nil {
			return err
		}
		if err := bw.WriteInt32(int32(a.attr.Type)); err != nil {
			return err
		}
		if err := bw.WriteInt32(int32(a.count)); err != nil {
			return err
		}
		if err := bw.WritePaddedBytes(a.raw); err != nil {
			return err
		}
	}
	return nil
}

func (w *FileWriter) writeData(bw *binary.Writer, begins []uint64) error {
	for i, v := range w.vars {
		if v.record {
			continue
		}
		data := v.data
		if !v.hasData {
			data = make([]byte, v.count*v.typ.Size())
		}
		vw := bw.At(int64(begins[i]))
		if err := vw.WritePaddedBytes(data); err != nil {
			return fmt.Errorf("writing variable %q data: %w", v.name, err)
		}
	}

	var recSize int64
	for _, v := range w.vars {
		if v.record {
			recSize += w.slabSize(v)
		}
	}
	for i, v := range w.vars {
		if !v.record {
			continue
		}
		slabBytes := v.count * v.typ.Size()
		data := v.data
		if !v.hasData {
			data = make([]byte, slabBytes*w.numRecs)
		}
		for rec := 0; rec < w.numRecs; rec++ {
			slab := data[rec*slabBytes : (rec+1)*slabBytes]
			vw := bw.At(int64(begins[i]) + int64(rec)*recSize)
			if err := vw.WriteBytes(slab); err != nil {
				return fmt.Errorf("writing variable %q record %d: %w", v.name, rec, err)
			}
			if err := vw.WriteZeros(int(w.slabSize(v)) - slabBytes); err != nil {
				return err
			}
		}
	}
	return nil
}
