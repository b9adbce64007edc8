package exodus

import (
	"fmt"
	"os"
	"regexp"

	"github.com/robert-malhotra/go-exodus/internal/cdf"
	"github.com/robert-malhotra/go-exodus/internal/ledger"
)

// The dimensions and variables owned by the entity set ledgers. Save
// rebuilds these from the staged state instead of copying them, so both
// their numbering and their contents follow the edits.
var (
	setDimPattern = regexp.MustCompile(
		`^(num_node_sets|num_side_sets|num_nod_ns\d+|num_side_ss\d+|num_df_ss\d+)$`)
	setVarPattern = regexp.MustCompile(
		`^(ns_status|ss_status|ns_prop\d+|ss_prop\d+|ns_names|ss_names|node_ns\d+|dist_fact_ns\d+|elem_ss\d+|side_ss\d+|dist_fact_ss\d+)$`)
)

// cdfSink adapts the backing file writer to the layout interface the
// entity set ledgers commit through.
type cdfSink struct {
	w *cdf.FileWriter
}

func (s *cdfSink) DefineDimension(name string, size int) error {
	return s.w.DefineDimension(name, size)
}

func (s *cdfSink) DefineVariable(name string, typ ledger.VarType, dims ...string) error {
	var t cdf.Type
	switch typ {
	case ledger.IntVar:
		t = cdf.Int
	case ledger.DoubleVar:
		t = cdf.Double
	case ledger.CharVar:
		t = cdf.Char
	default:
		return fmt.Errorf("variable %q: unknown variable type %d", name, typ)
	}
	return s.w.DefineVariable(name, t, dims)
}

func (s *cdfSink) PutVariableAttribute(varName, attrName string, value any) error {
	return s.w.PutVariableAttribute(varName, attrName, value)
}

func (s *cdfSink) PutInts(name string, vals []int64) error {
	return s.w.PutInts(name, vals)
}

func (s *cdfSink) PutDoubles(name string, vals []float64) error {
	return s.w.PutDoubles(name, vals)
}

func (s *cdfSink) PutStringRows(name string, rows []string) error {
	return s.w.PutStringRows(name, rows)
}

// Save writes the database, with all staged edits applied, to path as a
// complete fresh file. Everything outside the entity set layout is copied
// from the source database unchanged; the node set and side set layouts
// are rebuilt from the staged state.
//
// The whole output is assembled in memory before path is touched, so
// saving over the source file is safe. After saving over the source, the
// File still reads the pre-save state; reopen it to see the saved state.
func (f *File) Save(path string) error {
	if err := f.checkWritable(); err != nil {
		return err
	}

	w, err := cdf.NewFileWriter(f.data.Version)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := f.copyBase(w); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if !w.HasDimension(dimNameLength) {
		if err := w.DefineDimension(dimNameLength, f.maxNameLen+1); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
	}

	sink := &cdfSink{w: w}
	if err := f.nodeSets.Commit(sink); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := f.sideSets.Commit(sink); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := w.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	f.log.WithField("path", path).Debug("saved database")
	return nil
}

// copyBase copies every dimension, attribute and variable that is not
// part of the entity set layout from the source database into the writer,
// contents included.
func (f *File) copyBase(w *cdf.FileWriter) error {
	excludedDims := make(map[string]bool)
	for _, d := range f.data.Dims {
		if setDimPattern.MatchString(d.Name) {
			excludedDims[d.Name] = true
			continue
		}
		if err := w.DefineDimension(d.Name, d.Size); err != nil {
			return err
		}
	}

	for _, a := range f.data.Attrs {
		if err := w.PutAttribute(a.Name, a.Value); err != nil {
			return err
		}
	}

	for _, v := range f.data.Vars {
		if setVarPattern.MatchString(v.Name) {
			continue
		}
		dims := f.data.VarDimNames(v)
		skip := false
		for _, dn := range dims {
			if excludedDims[dn] {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if err := w.DefineVariable(v.Name, v.Type, dims); err != nil {
			return err
		}
		for _, a := range v.Attrs {
			if err := w.PutVariableAttribute(v.Name, a.Name, a.Value); err != nil {
				return err
			}
		}
		vals, err := f.data.ReadValues(v.Name)
		if err != nil {
			return fmt.Errorf("copying variable %q: %w", v.Name, err)
		}
		if err := w.PutValues(v.Name, vals); err != nil {
			return fmt.Errorf("copying variable %q: %w", v.Name, err)
		}
	}
	return nil
}

// writeSkeleton writes the minimal valid database Create starts from: the
// global header attributes, the standard string dimensions and an empty
// time axis.
func (f *File) writeSkeleton() error {
	version := cdf.Version1
	if f.largeModel {
		version = cdf.Version2
	}
	w, err := cdf.NewFileWriter(version)
	if err != nil {
		return err
	}

	attrs := []struct {
		name  string
		value any
	}{
		{attAPIVersion, libraryVersion},
		{attVersion, libraryVersion},
		{attWordSize, int32(f.wordSize)},
		{attFileSize, int32(1)},
		{attInt64Status, int32(0)},
		{attMaxNameLength, int32(f.maxNameLen)},
		{attTitle, f.title},
	}
	for _, a := range attrs {
		if err := w.PutAttribute(a.name, a.value); err != nil {
			return err
		}
	}

	dims := []struct {
		name string
		size int
	}{
		{dimStringLength, MaxStringLength + 1},
		{dimNameLength, f.maxNameLen + 1},
		{dimLineLength, MaxLineLength + 1},
		{dimFour, 4},
		{dimTimeStep, 0},
	}
	for _, d := range dims {
		if err := w.DefineDimension(d.name, d.size); err != nil {
			return err
		}
	}
	if err := w.DefineVariable(varTimeWhole, cdf.Double, []string{dimTimeStep}); err != nil {
		return err
	}

	out, err := os.Create(f.path)
	if err != nil {
		return err
	}
	if err := w.WriteTo(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
