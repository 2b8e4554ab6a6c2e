package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"fv-go/internal/fv"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
// Files matching ignorePatterns are never yielded by Walk.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	patterns := append(append([]string{}, defaultIgnorePatterns...), ignorePatterns...)
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(patterns)}
}

// ResolveDir converts rawPath to an absolute path with symlinks evaluated and
// checks that it names a readable directory.
func (m *OSFilesystemManager) ResolveDir(rawPath string) (string, error) {
	if rawPath == "" {
		return "", errors.New("empty path")
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", absPath)
	}

	d, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("opening directory: %w", err)
	}
	defer d.Close()
	if _, err := d.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading directory: %w", err)
	}

	return absPath, nil
}

// Walk visits regular files under root in lexical order. A symlink to a
// regular file is yielded with the target's info. Symlinked directories,
// devices, pipes and sockets are skipped, as are files matched by the ignore
// patterns or by a .fvignore file at the root. root must already be resolved.
func (m *OSFilesystemManager) Walk(root string, fn func(*fv.Candidate) bool, warn func(path string, err error)) {
	errStop := errors.New("stop")

	matcher := m.ignore
	extra, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		warn(filepath.Join(root, IgnoreFileName), err)
	} else {
		matcher = matcher.With(extra)
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			warn(p, err)
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			// An unreadable root or a file that vanished mid-walk.
			if p == root {
				return errStop
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = d.Name()
		}
		if d.IsDir() {
			if p != root && matcher.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(rel) {
			return nil
		}

		var info fs.FileInfo
		switch {
		case d.Type().IsRegular():
			info, err = d.Info()
		case d.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(p)
			if err == nil && !info.Mode().IsRegular() {
				return nil
			}
		default:
			return nil
		}
		if err != nil {
			warn(p, fmt.Errorf("stat: %w", err))
			return nil
		}
		if !fn(fv.NewCandidate(p, rel, info)) {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		warn(root, err)
	}
}

// Open opens a candidate for reading.
func (m *OSFilesystemManager) Open(c *fv.Candidate) (io.ReadCloser, error) {
	return os.Open(c.Path())
}

// Create starts writing path through a temp file in the same directory,
// creating parent directories as needed. Unless overwrite is set, an existing
// file is refused both here and at Commit.
func (m *OSFilesystemManager) Create(path string, overwrite bool) (fv.PendingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return nil, fmt.Errorf("creating %s: %w", path, fs.ErrExist)
		}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &pendingFile{File: f, dest: path, overwrite: overwrite}, nil
}

// pendingFile is a temp file that replaces or claims dest on Commit.
type pendingFile struct {
	*os.File
	dest      string
	overwrite bool
}

func (p *pendingFile) Commit() error {
	tmpPath := p.Name()
	defer os.Remove(tmpPath)

	if err := p.Chmod(0o644); err != nil {
		p.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := p.Sync(); err != nil {
		p.Close()
		return fmt.Errorf("syncing %s: %w", p.dest, err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", p.dest, err)
	}

	if p.overwrite {
		if err := os.Rename(tmpPath, p.dest); err != nil {
			return fmt.Errorf("moving into place: %w", err)
		}
		return nil
	}
	// A hard link fails if dest appeared since Create.
	err := os.Link(tmpPath, p.dest)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("creating %s: %w", p.dest, err)
	}
	if _, statErr := os.Lstat(p.dest); statErr == nil {
		return fmt.Errorf("creating %s: %w", p.dest, fs.ErrExist)
	}
	if err := os.Rename(tmpPath, p.dest); err != nil {
		return fmt.Errorf("moving into place: %w", err)
	}
	return nil
}

func (p *pendingFile) Discard() error {
	p.Close()
	return os.Remove(p.Name())
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Compile-time check that OSFilesystemManager implements fv.FilesystemManager interface
var _ fv.FilesystemManager = (*OSFilesystemManager)(nil)
