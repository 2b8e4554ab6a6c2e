package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	fvfs "fv-go/internal/fs"
	"fv-go/internal/fv"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// Stored copies are plain files directly under root:
//
//	<root>/
//	  report_20240115_103000.pdf
//	  notes_20240115_103000.txt
type FileSystemVault struct {
	root string
}

// NewFileSystemVault creates a filesystem vault rooted at the given path.
// The directory is created by Prepare, not here.
func NewFileSystemVault(root string) *FileSystemVault {
	return &FileSystemVault{root: root}
}

// Root returns the vault directory.
func (v *FileSystemVault) Root() string {
	return v.root
}

// Prepare creates the vault directory and its parents if absent.
func (v *FileSystemVault) Prepare() error {
	if err := os.MkdirAll(v.root, 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// Put stores content under storedName without ever replacing an existing copy.
func (v *FileSystemVault) Put(storedName string, r io.Reader, size int64) (string, error) {
	if err := checkName(storedName); err != nil {
		return "", err
	}
	destPath := filepath.Join(v.root, storedName)
	if _, err := os.Lstat(destPath); err == nil {
		return "", fmt.Errorf("%w: %s", fv.ErrNameCollision, destPath)
	}

	if err := v.writeFile(destPath, r, size); err != nil {
		return "", err
	}
	return destPath, nil
}

// writeFile writes data from r to a temp file in the vault, syncs it, and then
// links it into place so an existing destPath is never overwritten.
// The temp file is always removed.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(v.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", fv.ErrSizeMismatch, expectedSize, written)
	}

	err = os.Link(tmpPath, destPath)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", fv.ErrNameCollision, destPath)
	}

	// Filesystems without hard links (FAT, some network mounts) fall back to
	// rename after an existence check.
	if _, statErr := os.Lstat(destPath); statErr == nil {
		return fmt.Errorf("%w: %s", fv.ErrNameCollision, destPath)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}

// Open returns a reader for a stored copy.
func (v *FileSystemVault) Open(storedName string) (io.ReadCloser, error) {
	if err := checkName(storedName); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(v.root, storedName))
	if err != nil {
		return nil, fmt.Errorf("opening stored copy: %w", err)
	}
	return f, nil
}

// Exists reports whether a stored copy is present.
func (v *FileSystemVault) Exists(storedName string) (bool, error) {
	if err := checkName(storedName); err != nil {
		return false, err
	}
	_, err := os.Lstat(filepath.Join(v.root, storedName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat stored copy: %w", err)
}

// Remove deletes a stored copy. A missing copy is not an error.
func (v *FileSystemVault) Remove(storedName string) error {
	if err := checkName(storedName); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(v.root, storedName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stored copy: %w", err)
	}
	return nil
}

// LocalPath returns the on-disk path of a stored copy.
func (v *FileSystemVault) LocalPath(storedName string) (string, bool) {
	return filepath.Join(v.root, storedName), true
}

// Preserve copies permission bits and access/modification times of the
// source file onto the stored copy.
func (v *FileSystemVault) Preserve(storedName string, info fs.FileInfo) error {
	destPath := filepath.Join(v.root, storedName)
	if err := os.Chmod(destPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("copying permissions: %w", err)
	}
	mtime := info.ModTime()
	atime, ok := fvfs.AccessTime(info)
	if !ok {
		atime = mtime
	}
	if err := os.Chtimes(destPath, atime, mtime); err != nil {
		return fmt.Errorf("copying timestamps: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements fv.Vault interface
var (
	_ fv.Vault             = (*FileSystemVault)(nil)
	_ fv.MetadataPreserver = (*FileSystemVault)(nil)
)
