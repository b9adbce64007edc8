package cdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileBuf is a growable io.WriterAt for assembling files in memory.
type fileBuf struct {
	data []byte
}

func (b *fileBuf) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if int64(len(b.data)) < end {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:], p)
	return len(p), nil
}

func writeAndReopen(t *testing.T, w *FileWriter) *File {
	t.Helper()
	buf := &fileBuf{}
	require.NoError(t, w.WriteTo(buf))
	f, err := Open(bytes.NewReader(buf.data))
	require.NoError(t, err)
	return f
}

func TestOpenRejectsBadSignature(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte{'N', 'O', 'P', 'E', 0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrNotCDF)
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte{'C', 'D', 'F', 9, 0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEmptyFileRoundtrip(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)

	f := writeAndReopen(t, w)
	assert.Equal(t, Version1, f.Version)
	assert.Empty(t, f.Dims)
	assert.Empty(t, f.Vars)
	assert.Empty(t, f.Attrs)
	assert.Zero(t, f.NumRecs)
}

func TestFixedVariableRoundtrip(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)

	require.NoError(t, w.DefineDimension("num_nodes", 5))
	require.NoError(t, w.DefineDimension("num_dim", 2))
	require.NoError(t, w.PutAttribute("title", "unit cube"))
	require.NoError(t, w.PutAttribute("version", float32(7.22)))
	require.NoError(t, w.PutAttribute("floating_point_word_size", int32(8)))

	require.NoError(t, w.DefineVariable("ids", Int, []string{"num_nodes"}))
	require.NoError(t, w.PutInts("ids", []int64{10, 20, 30, 40, 50}))
	require.NoError(t, w.DefineVariable("coord", Double, []string{"num_dim", "num_nodes"}))
	require.NoError(t, w.PutDoubles("coord", []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	require.NoError(t, w.PutVariableAttribute("ids", "name", "ID"))

	f := writeAndReopen(t, w)

	d, ok := f.Dim("num_nodes")
	require.True(t, ok)
	assert.Equal(t, 5, d.Size)

	title, ok := f.Attr("title")
	require.True(t, ok)
	assert.Equal(t, "unit cube", title.Value)

	ver, ok := f.Attr("version")
	require.True(t, ok)
	assert.Equal(t, float32(7.22), ver.Value)

	ws, ok := f.Attr("floating_point_word_size")
	require.True(t, ok)
	assert.Equal(t, int32(8), ws.Value)

	ids, err := f.ReadInts("ids")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30, 40, 50}, ids)

	coord, err := f.ReadDoubles("coord")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, coord)

	v, ok := f.Var("ids")
	require.True(t, ok)
	nameAttr, ok := v.Attr("name")
	require.True(t, ok)
	assert.Equal(t, "ID", nameAttr.Value)
	assert.Equal(t, []string{"num_nodes"}, f.VarDimNames(v))
}

func TestCharTableRoundtrip(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)

	require.NoError(t, w.DefineDimension("num_sets", 3))
	require.NoError(t, w.DefineDimension("len_name", 33))
	require.NoError(t, w.DefineVariable("ns_names", Char, []string{"num_sets", "len_name"}))
	require.NoError(t, w.PutStringRows("ns_names", []string{"inlet", "outlet", "wall"}))

	f := writeAndReopen(t, w)
	rows, err := f.ReadStringRows("ns_names")
	require.NoError(t, err)
	assert.Equal(t, []string{"inlet", "outlet", "wall"}, rows)
}

func TestStringRowTooWide(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("num_sets", 1))
	require.NoError(t, w.DefineDimension("len_name", 4))
	require.NoError(t, w.DefineVariable("ns_names", Char, []string{"num_sets", "len_name"}))
	assert.Error(t, w.PutStringRows("ns_names", []string{"much too long"}))
}

func TestRecordVariableRoundtrip(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)

	require.NoError(t, w.DefineDimension("time_step", 0))
	require.NoError(t, w.DefineDimension("num_nodes", 3))
	require.NoError(t, w.DefineVariable("time_whole", Double, []string{"time_step"}))
	require.NoError(t, w.DefineVariable("vals_nod_var", Double, []string{"time_step", "num_nodes"}))
	require.NoError(t, w.PutDoubles("time_whole", []float64{0.0, 0.5}))
	require.NoError(t, w.PutDoubles("vals_nod_var", []float64{1, 2, 3, 4, 5, 6}))

	f := writeAndReopen(t, w)
	assert.Equal(t, 2, f.NumRecs)

	times, err := f.ReadDoubles("time_whole")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.5}, times)

	vals, err := f.ReadDoubles("vals_nod_var")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, vals)

	n, err := f.DimLength("time_step")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordCountConflict(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("time_step", 0))
	require.NoError(t, w.DefineVariable("a", Double, []string{"time_step"}))
	require.NoError(t, w.DefineVariable("b", Double, []string{"time_step"}))
	require.NoError(t, w.PutDoubles("a", []float64{1, 2, 3}))
	assert.Error(t, w.PutDoubles("b", []float64{1, 2}))
}

func TestVersion2Offsets(t *testing.T) {
	w, err := NewFileWriter(Version2)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("n", 4))
	require.NoError(t, w.DefineVariable("v", Int, []string{"n"}))
	require.NoError(t, w.PutInts("v", []int64{1, 2, 3, 4}))

	f := writeAndReopen(t, w)
	assert.Equal(t, Version2, f.Version)
	vals, err := f.ReadInts("v")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, vals)
}

func TestShortPaddingRoundtrip(t *testing.T) {
	// A 3-element short variable occupies 6 bytes padded to 8; a
	// following variable must still read back intact.
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("n", 3))
	require.NoError(t, w.DefineVariable("s", Short, []string{"n"}))
	require.NoError(t, w.PutValues("s", []int16{7, -8, 9}))
	require.NoError(t, w.DefineVariable("i", Int, []string{"n"}))
	require.NoError(t, w.PutInts("i", []int64{1, 2, 3}))

	f := writeAndReopen(t, w)
	s, err := f.ReadInts("s")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, -8, 9}, s)
	i, err := f.ReadInts("i")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, i)
}

func TestDuplicateDefinitions(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("n", 3))
	assert.ErrorIs(t, w.DefineDimension("n", 5), ErrDuplicate)
	require.NoError(t, w.DefineVariable("v", Int, []string{"n"}))
	assert.ErrorIs(t, w.DefineVariable("v", Int, []string{"n"}), ErrDuplicate)
	assert.ErrorIs(t, w.DefineVariable("w", Int, []string{"missing"}), ErrNotFound)
}

func TestValueCountValidation(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("n", 3))
	require.NoError(t, w.DefineVariable("v", Int, []string{"n"}))
	assert.Error(t, w.PutInts("v", []int64{1, 2}))
	assert.ErrorIs(t, w.PutValues("v", []float64{1, 2, 3}), ErrTypeMismatch)
}

func TestUndataVariableZeroFilled(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	require.NoError(t, w.DefineDimension("n", 2))
	require.NoError(t, w.DefineVariable("v", Double, []string{"n"}))

	f := writeAndReopen(t, w)
	vals, err := f.ReadDoubles("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, vals)
}

func TestReadMissingVariable(t *testing.T) {
	w, err := NewFileWriter(Version1)
	require.NoError(t, err)
	f := writeAndReopen(t, w)
	_, err = f.ReadInts("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// be32 appends a big-endian word to a hand-assembled header.
func be32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func TestOpenRejectsCorruptAttributeCount(t *testing.T) {
	counts := map[string]uint32{
		"negative": 0xFFFFFFFF,
		"huge":     0x7FFFFFFF,
	}
	for name, count := range counts {
		t.Run(name, func(t *testing.T) {
			var raw []byte
			raw = append(raw, 'C', 'D', 'F', 1)
			raw = be32(raw, 0) // record count
			raw = be32(raw, 0) // dimension list absent
			raw = be32(raw, 0)
			raw = be32(raw, tagAttribute)
			raw = be32(raw, 1)
			raw = be32(raw, 1) // name length
			raw = append(raw, 'a', 0, 0, 0)
			raw = be32(raw, uint32(Double))
			raw = be32(raw, count)

			_, err := Open(bytes.NewReader(raw))
			assert.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestOpenRejectsCorruptVariableRank(t *testing.T) {
	var raw []byte
	raw = append(raw, 'C', 'D', 'F', 1)
	raw = be32(raw, 0) // record count
	raw = be32(raw, 0) // dimension list absent
	raw = be32(raw, 0)
	raw = be32(raw, 0) // global attribute list absent
	raw = be32(raw, 0)
	raw = be32(raw, tagVariable)
	raw = be32(raw, 1)
	raw = be32(raw, 1) // name length
	raw = append(raw, 'v', 0, 0, 0)
	raw = be32(raw, 0xFFFFFFFF) // rank

	_, err := Open(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
