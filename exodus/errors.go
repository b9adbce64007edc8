// Package exodus provides a pure Go implementation for reading and
// editing Exodus II mesh databases stored in NetCDF classic files.
package exodus

import (
	"errors"

	"github.com/robert-malhotra/go-exodus/internal/ledger"
)

// Common errors
var (
	ErrNotExodus          = errors.New("not an Exodus database")
	ErrUnsupportedVersion = errors.New("unsupported Exodus database version")
	ErrClosed             = errors.New("file is closed")
	ErrReadOnly           = errors.New("file is open read-only")

	// Entity set validation errors, surfaced from the mutation ledger.
	ErrNotFound       = ledger.ErrNotFound
	ErrDuplicateID    = ledger.ErrDuplicateID
	ErrLengthMismatch = ledger.ErrLengthMismatch
	ErrNameTooLong    = ledger.ErrNameTooLong
)
