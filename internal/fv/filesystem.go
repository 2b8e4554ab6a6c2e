package fv

import (
	"io"
	"io/fs"
)

// FilesystemManager abstracts access to the source tree and to download
// destinations so the pipeline can be tested without touching the real filesystem.
type FilesystemManager interface {
	// ResolveDir converts rawPath to an absolute path and checks that it is
	// an existing, readable directory.
	ResolveDir(rawPath string) (string, error)

	// Walk visits every regular file under root depth-first, calling fn for
	// each one until fn returns false. Subdirectories that cannot be read are
	// reported to warn and skipped.
	Walk(root string, fn func(*Candidate) bool, warn func(path string, err error))

	// Open opens a candidate for reading.
	Open(c *Candidate) (io.ReadCloser, error)

	// Create starts writing path, creating missing parent directories.
	// An existing file is an error unless overwrite is set.
	Create(path string, overwrite bool) (PendingFile, error)

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)
}

// PendingFile is a destination file being written. Nothing appears at the
// destination before Commit. Discard drops the written data and leaves any
// existing file at the destination untouched.
type PendingFile interface {
	io.Writer
	Commit() error
	Discard() error
}
