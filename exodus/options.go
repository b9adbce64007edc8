package exodus

import (
	"github.com/sirupsen/logrus"
)

// FileOption configures a File during Open, OpenAppend or Create.
type FileOption func(*File)

// WithLogger routes internal diagnostics to the given logger. The
// default discards all output.
func WithLogger(log logrus.FieldLogger) FileOption {
	return func(f *File) {
		if log != nil {
			f.log = log
		}
	}
}

// WithTitle sets the database title on a newly created file. Ignored
// when opening an existing file.
func WithTitle(title string) FileOption {
	return func(f *File) { f.title = title }
}

// WithWordSize sets the floating point word size recorded in a newly
// created database. Values other than 4 or 8 are ignored.
func WithWordSize(size int) FileOption {
	return func(f *File) {
		if size == 4 || size == 8 {
			f.wordSize = size
		}
	}
}

// WithMaxNameLength overrides the maximum entity name length used for
// a newly created database.
func WithMaxNameLength(n int) FileOption {
	return func(f *File) {
		if n > 0 {
			f.maxNameLen = n
		}
	}
}

// WithLargeModel creates the database in the CDF-2 (64-bit offset)
// variant of the classic format. Ignored when opening an existing file,
// where the variant is taken from the file itself.
func WithLargeModel() FileOption {
	return func(f *File) { f.largeModel = true }
}
