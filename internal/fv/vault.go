package fv

import (
	"io"
	"io/fs"
)

// Vault is the managed storage location for imported copies.
// Stored names are flat: the vault has no subdirectories.
type Vault interface {
	// Prepare makes the vault usable, creating its root if absent.
	Prepare() error

	// Put stores the content read from r under storedName and returns the
	// stored path. size is the number of bytes that will be read from r.
	// Put never overwrites: an existing storedName yields an error wrapping
	// ErrNameCollision and leaves the existing copy untouched.
	Put(storedName string, r io.Reader, size int64) (string, error)

	// Open returns a reader for a stored copy. A missing copy yields an error
	// wrapping fs.ErrNotExist.
	Open(storedName string) (io.ReadCloser, error)

	// Exists reports whether a stored copy is present.
	Exists(storedName string) (bool, error)

	// Remove deletes a stored copy. Removing a missing copy is not an error.
	Remove(storedName string) error

	// LocalPath returns the on-disk path of a stored copy when the vault
	// keeps copies on the local filesystem.
	LocalPath(storedName string) (string, bool)
}

// MetadataPreserver is implemented by vaults that can carry source file
// metadata (permissions, timestamps) over to a stored copy.
type MetadataPreserver interface {
	Preserve(storedName string, info fs.FileInfo) error
}
