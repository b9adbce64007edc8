package exodus

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-exodus/internal/cdf"
	"github.com/robert-malhotra/go-exodus/internal/ledger"
)

// File is an open Exodus II mesh database.
//
// A File opened with Open is read-only. A File opened with OpenAppend or
// Create additionally stages node set and side set edits in memory; Save
// writes the staged state to a new database. A File is not safe for
// concurrent use.
type File struct {
	path     string
	raw      *os.File
	data     *cdf.File
	writable bool
	closed   bool

	title      string
	wordSize   int
	maxNameLen int
	largeModel bool
	log        logrus.FieldLogger

	nodeSets *ledger.NodeLedger
	sideSets *ledger.SideLedger
}

// Open opens an existing database for reading.
func Open(path string, opts ...FileOption) (*File, error) {
	return open(path, false, opts)
}

// OpenAppend opens an existing database for reading and staged editing.
// The file on disk is never modified in place: edits accumulate in memory
// and are written out by Save.
func OpenAppend(path string, opts ...FileOption) (*File, error) {
	return open(path, true, opts)
}

// Create writes a new, empty database at path and opens it for editing.
// An existing file at path is overwritten.
func Create(path string, opts ...FileOption) (*File, error) {
	f := newFile(path, true, opts)
	if err := f.writeSkeleton(); err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func newFile(path string, writable bool, opts []FileOption) *File {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	f := &File{
		path:       path,
		writable:   writable,
		wordSize:   8,
		maxNameLen: MaxNameLength,
		log:        silent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func open(path string, writable bool, opts []FileOption) (*File, error) {
	f := newFile(path, writable, opts)
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// load opens the backing file, validates the Exodus layer and seeds the
// entity set ledgers.
func (f *File) load() error {
	raw, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	data, err := cdf.Open(raw)
	if err != nil {
		raw.Close()
		if errors.Is(err, cdf.ErrNotCDF) {
			return fmt.Errorf("%s: %w", f.path, ErrNotExodus)
		}
		if errors.Is(err, cdf.ErrUnsupportedVersion) {
			return fmt.Errorf("%s: %w", f.path, ErrUnsupportedVersion)
		}
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	f.raw = raw
	f.data = data
	f.largeModel = data.Version == cdf.Version2

	if _, ok := f.attrFloat(attAPIVersion, attAPIVersionOld); !ok {
		raw.Close()
		return fmt.Errorf("%s: missing api_version: %w", f.path, ErrNotExodus)
	}
	if title, ok := data.Attr(attTitle); ok {
		if s, isStr := title.Value.(string); isStr {
			f.title = s
		}
	}
	if ws, ok := f.attrInt(attWordSize, attWordSizeOld); ok {
		f.wordSize = int(ws)
	}
	if n, ok := f.attrInt(attMaxNameLength); ok && n > 0 {
		f.maxNameLen = int(n)
	} else if width := f.dimLen(dimNameLength); width > 1 {
		f.maxNameLen = width - 1
	}

	if err := f.seedNodeSets(); err != nil {
		raw.Close()
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	if err := f.seedSideSets(); err != nil {
		raw.Close()
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	f.log.WithFields(logrus.Fields{
		"path":     f.path,
		"title":    f.title,
		"nodeSets": f.nodeSets.Count(),
		"sideSets": f.sideSets.Count(),
		"writable": f.writable,
		"wordSize": f.wordSize,
	}).Debug("opened database")
	return nil
}

// Close releases the underlying file. Staged edits not written by Save
// are discarded.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	if f.raw != nil {
		return f.raw.Close()
	}
	return nil
}

// Path returns the path the database was opened from.
func (f *File) Path() string { return f.path }

// Writable reports whether the file accepts staged edits.
func (f *File) Writable() bool { return f.writable }

// Title returns the database title.
func (f *File) Title() string { return f.title }

// Version returns the database format version.
func (f *File) Version() float64 {
	v, _ := f.attrFloat(attVersion)
	return v
}

// APIVersion returns the library version the database was written with.
func (f *File) APIVersion() float64 {
	v, _ := f.attrFloat(attAPIVersion, attAPIVersionOld)
	return v
}

// WordSize returns the floating point word size the database was written
// with, in bytes.
func (f *File) WordSize() int { return f.wordSize }

// MaxAllowedNameLength returns the longest entity name the database can
// store.
func (f *File) MaxAllowedNameLength() int { return f.maxNameLen }

// NumDimensions returns the spatial dimension count of the mesh.
func (f *File) NumDimensions() int { return f.dimLen(dimNumDim) }

// NumNodes returns the node count of the mesh.
func (f *File) NumNodes() int { return f.dimLen(dimNumNodes) }

// NumElems returns the element count of the mesh.
func (f *File) NumElems() int { return f.dimLen(dimNumElem) }

// NumElemBlocks returns the element block count.
func (f *File) NumElemBlocks() int { return f.dimLen(dimNumElemBlk) }

// NumTimeSteps returns the number of time steps stored.
func (f *File) NumTimeSteps() int { return f.data.NumRecs }

// dimLen returns a dimension's length, or zero when absent.
func (f *File) dimLen(name string) int {
	n, err := f.data.DimLength(name)
	if err != nil {
		return 0
	}
	return n
}

// attrFloat returns the first present global attribute among names as a
// float64.
func (f *File) attrFloat(names ...string) (float64, bool) {
	for _, name := range names {
		a, ok := f.data.Attr(name)
		if !ok {
			continue
		}
		switch v := a.Value.(type) {
		case float32:
			return float64(v), true
		case float64:
			return v, true
		}
	}
	return 0, false
}

// attrInt returns the first present global attribute among names as an
// int64.
func (f *File) attrInt(names ...string) (int64, bool) {
	for _, name := range names {
		a, ok := f.data.Attr(name)
		if !ok {
			continue
		}
		switch v := a.Value.(type) {
		case int8:
			return int64(v), true
		case int16:
			return int64(v), true
		case int32:
			return int64(v), true
		}
	}
	return 0, false
}
