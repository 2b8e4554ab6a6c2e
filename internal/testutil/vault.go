package testutil

import (
	"io"
	"sync"

	"fv-go/internal/fv"
	"fv-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault()
}

// FaultyVault wraps a vault and injects failures.
type FaultyVault struct {
	fv.Vault

	mu         sync.Mutex
	PrepareErr error
	putErrs    map[string]error
}

// NewFaultyVault wraps inner.
func NewFaultyVault(inner fv.Vault) *FaultyVault {
	return &FaultyVault{Vault: inner, putErrs: make(map[string]error)}
}

// FailPut makes Put of storedName fail with err.
func (v *FaultyVault) FailPut(storedName string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.putErrs[storedName] = err
}

func (v *FaultyVault) Prepare() error {
	if v.PrepareErr != nil {
		return v.PrepareErr
	}
	return v.Vault.Prepare()
}

func (v *FaultyVault) Put(storedName string, r io.Reader, size int64) (string, error) {
	v.mu.Lock()
	err := v.putErrs[storedName]
	v.mu.Unlock()
	if err != nil {
		return "", err
	}
	return v.Vault.Put(storedName, r, size)
}
