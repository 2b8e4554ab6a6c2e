package fv

import "io"

// CatalogEncryptor protects exported snapshots of the metadata store.
type CatalogEncryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer, passphrase string) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	// A wrong passphrase is an error.
	Decrypt(r io.Reader, w io.Writer, passphrase string) error

	// NeedsPassphrase reports whether Encrypt and Decrypt use the passphrase.
	NeedsPassphrase() bool
}
