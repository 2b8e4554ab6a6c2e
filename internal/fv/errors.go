package fv

import (
	"errors"
	"fmt"
)

// Error kinds. Batch-fatal: ErrSourceNotFound, ErrVaultUncreatable.
// Per item: ErrItemRead, ErrItemWrite, ErrNameCollision.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrVaultUncreatable = errors.New("vault cannot be created")
	ErrItemRead         = errors.New("reading item failed")
	ErrItemWrite        = errors.New("writing item failed")
	ErrNameCollision    = errors.New("stored name already exists")

	// ErrSizeMismatch is returned by a vault when the bytes it received differ
	// from the announced size, which means the source changed while copying.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrStoreUnavailable means the metadata store could not be opened or written.
	// After an import it marks a file that was copied into the vault but not recorded.
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// ErrNotFound is returned for an unknown file record id.
	ErrNotFound = errors.New("file record not found")

	// ErrBusy is returned when an operation of the same kind is already running.
	ErrBusy = errors.New("operation already running")
)

// OpError ties an error kind to the path or identifier it concerns.
// errors.Is matches both the kind and the underlying cause.
type OpError struct {
	Kind error
	Path string
	Err  error
}

func newOpError(kind error, path string, err error) *OpError {
	return &OpError{Kind: kind, Path: path, Err: err}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
