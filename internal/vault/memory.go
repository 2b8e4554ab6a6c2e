package vault

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"fv-go/internal/fv"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores all copies in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	content map[string][]byte // storedName -> content
	mu      sync.RWMutex
}

// NewMemoryVault creates a new, empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		content: make(map[string][]byte),
	}
}

// Prepare always succeeds for the in-memory vault.
func (m *MemoryVault) Prepare() error {
	return nil
}

// Put stores content under storedName. An existing name is a collision.
func (m *MemoryVault) Put(storedName string, r io.Reader, size int64) (string, error) {
	if err := checkName(storedName); err != nil {
		return "", err
	}

	m.mu.RLock()
	_, exists := m.content[storedName]
	m.mu.RUnlock()
	if exists {
		return "", fmt.Errorf("%w: %s", fv.ErrNameCollision, storedName)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", fv.ErrSizeMismatch, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.content[storedName]; exists {
		return "", fmt.Errorf("%w: %s", fv.ErrNameCollision, storedName)
	}
	m.content[storedName] = data
	return "memory://" + storedName, nil
}

// Open returns a reader over a stored copy.
func (m *MemoryVault) Open(storedName string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[storedName]
	if !ok {
		return nil, fmt.Errorf("stored copy %s: %w", storedName, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether a stored copy is present.
func (m *MemoryVault) Exists(storedName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.content[storedName]
	return ok, nil
}

// Remove deletes a stored copy.
func (m *MemoryVault) Remove(storedName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.content, storedName)
	return nil
}

// LocalPath always reports false: nothing is on disk.
func (m *MemoryVault) LocalPath(string) (string, bool) {
	return "", false
}

// Names returns the stored names currently held.
func (m *MemoryVault) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.content))
	for name := range m.content {
		names = append(names, name)
	}
	return names
}

// Compile-time check that MemoryVault implements fv.Vault interface
var _ fv.Vault = (*MemoryVault)(nil)
