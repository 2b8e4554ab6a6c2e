package testutil

import (
	"fv-go/internal/encryption"
	"fv-go/internal/fv"
)

// NewTestEncryptor returns an age encryptor with a low scrypt work factor so tests stay fast.
func NewTestEncryptor() fv.CatalogEncryptor {
	return encryption.NewAgeEncryptor(10)
}
