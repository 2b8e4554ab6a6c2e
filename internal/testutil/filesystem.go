package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fv-go/internal/fv"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool

	// Unreadable directories are reported to the walk's warn callback and skipped.
	Unreadable bool
	// OpenErr is returned by Open.
	OpenErr error
	// ReadErr is returned by reads once FailAfter bytes have been read.
	ReadErr   error
	FailAfter int
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are absolute and slash separated. Safe for concurrent use.
type MockFilesystemManager struct {
	mu         sync.Mutex
	files      map[string]*MockFile
	createErrs map[string]error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:      make(map[string]*MockFile),
		createErrs: make(map[string]error),
	}
}

var mockModTime = time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)

// AddFile adds a file to the mock filesystem, creating its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) *MockFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	f := &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     mockModTime,
	}
	m.files[path] = f
	return f
}

// AddDirectory adds a directory to the mock filesystem, creating its parents.
func (m *MockFilesystemManager) AddDirectory(path string) *MockFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	if f, ok := m.files[path]; ok && f.IsDirectory {
		return f
	}
	f := &MockFile{Permissions: 0755, ModTime: mockModTime, IsDirectory: true}
	m.files[path] = f
	return f
}

func (m *MockFilesystemManager) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{Permissions: 0755, ModTime: mockModTime, IsDirectory: true}
		}
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

// FailCreate makes Create of path fail with err.
func (m *MockFilesystemManager) FailCreate(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErrs[filepath.Clean(path)] = err
}

// Content returns the bytes of a file.
func (m *MockFilesystemManager) Content(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok || f.IsDirectory {
		return nil, false
	}
	return f.Content, true
}

func (m *MockFilesystemManager) ResolveDir(rawPath string) (string, error) {
	if rawPath == "" {
		return "", errors.New("empty path")
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[absPath]
	if !ok {
		return "", fmt.Errorf("stat %s: %w", absPath, fs.ErrNotExist)
	}
	if !f.IsDirectory {
		return "", fmt.Errorf("not a directory: %s", absPath)
	}
	if f.Unreadable {
		return "", fmt.Errorf("reading directory %s: %w", absPath, fs.ErrPermission)
	}
	return absPath, nil
}

// children returns the direct entries of dir sorted by name.
func (m *MockFilesystemManager) children(dir string) []string {
	var out []string
	for p := range m.files {
		if p != dir && filepath.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return filepath.Base(out[i]) < filepath.Base(out[j]) })
	return out
}

// Walk visits files depth-first in lexical order, like filepath.WalkDir.
func (m *MockFilesystemManager) Walk(root string, fn func(*fv.Candidate) bool, warn func(path string, err error)) {
	root = filepath.Clean(root)
	m.walk(root, root, fn, warn)
}

func (m *MockFilesystemManager) walk(root, dir string, fn func(*fv.Candidate) bool, warn func(string, error)) bool {
	m.mu.Lock()
	d, ok := m.files[dir]
	if !ok || !d.IsDirectory {
		m.mu.Unlock()
		warn(dir, fs.ErrNotExist)
		return true
	}
	if d.Unreadable {
		m.mu.Unlock()
		warn(dir, fmt.Errorf("open %s: %w", dir, fs.ErrPermission))
		return true
	}
	entries := m.children(dir)
	m.mu.Unlock()

	for _, p := range entries {
		m.mu.Lock()
		f := m.files[p]
		m.mu.Unlock()
		if f.IsDirectory {
			if !m.walk(root, p, fn, warn) {
				return false
			}
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), string(filepath.Separator))
		if !fn(fv.NewCandidate(p, rel, newMockFileInfo(p, f))) {
			return false
		}
	}
	return true
}

func (m *MockFilesystemManager) Open(c *fv.Candidate) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[c.Path()]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", c.Path(), fs.ErrNotExist)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", c.Path())
	}
	if file.OpenErr != nil {
		return nil, file.OpenErr
	}
	var r io.Reader = bytes.NewReader(file.Content)
	if file.ReadErr != nil {
		r = io.MultiReader(io.LimitReader(r, int64(file.FailAfter)), &errReader{err: file.ReadErr})
	}
	return io.NopCloser(r), nil
}

// Create returns a pending file whose content is stored at path on Commit.
func (m *MockFilesystemManager) Create(path string, overwrite bool) (fv.PendingFile, error) {
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErrs[path]; err != nil {
		return nil, err
	}
	if err := m.checkWritable(path, overwrite); err != nil {
		return nil, err
	}
	return &mockWriter{m: m, path: path, overwrite: overwrite}, nil
}

func (m *MockFilesystemManager) checkWritable(path string, overwrite bool) error {
	f, ok := m.files[path]
	if !ok {
		return nil
	}
	if f.IsDirectory {
		return fmt.Errorf("creating %s: is a directory", path)
	}
	if !overwrite {
		return fmt.Errorf("creating %s: %w", path, fs.ErrExist)
	}
	return nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}
	return newMockFileInfo(path, file), nil
}

type mockWriter struct {
	m         *MockFilesystemManager
	path      string
	overwrite bool
	buf       bytes.Buffer
}

func (w *mockWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *mockWriter) Commit() error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	if err := w.m.checkWritable(w.path, w.overwrite); err != nil {
		return err
	}
	w.m.addParents(w.path)
	w.m.files[w.path] = &MockFile{Content: w.buf.Bytes(), Permissions: 0644, ModTime: mockModTime}
	return nil
}

func (w *mockWriter) Discard() error {
	w.buf.Reset()
	return nil
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	mode := f.Permissions
	if f.IsDirectory {
		mode |= fs.ModeDir
	}
	return &mockFileInfo{
		name:     filepath.Base(path),
		size:     int64(len(f.Content)),
		mode:     mode,
		modTime:  f.ModTime,
		isDir:    f.IsDirectory,
		mockFile: f,
	}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	size     int64
	mode     fs.FileMode
	modTime  time.Time
	isDir    bool
	mockFile *MockFile
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

// Compile-time check
var _ fv.FilesystemManager = (*MockFilesystemManager)(nil)
