package encryption

import (
	"fmt"
	"io"

	"fv-go/internal/fv"
)

// PlainEncryptor writes catalog snapshots unencrypted. The passphrase is ignored.
type PlainEncryptor struct{}

var _ fv.CatalogEncryptor = (*PlainEncryptor)(nil)

// NewPlainEncryptor creates a new PlainEncryptor.
func NewPlainEncryptor() *PlainEncryptor {
	return &PlainEncryptor{}
}

func (e *PlainEncryptor) Encrypt(r io.Reader, w io.Writer, _ string) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *PlainEncryptor) Decrypt(r io.Reader, w io.Writer, _ string) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *PlainEncryptor) NeedsPassphrase() bool {
	return false
}
