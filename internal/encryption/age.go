package encryption

import (
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"fv-go/internal/fv"
)

// ErrWrongPassphrase is returned when a snapshot cannot be decrypted with the given passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase or not an encrypted catalog")

// defaultMaxWorkFactor mirrors age's own limit for scrypt identities.
const defaultMaxWorkFactor = 22

// AgeEncryptor implements fv.CatalogEncryptor using age's scrypt passphrase
// recipient. No key material is stored: the passphrase is the key.
type AgeEncryptor struct {
	workFactor int
}

var _ fv.CatalogEncryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor. workFactor is log2 of the scrypt
// cost; zero keeps age's default.
func NewAgeEncryptor(workFactor int) *AgeEncryptor {
	return &AgeEncryptor{workFactor: workFactor}
}

// Encrypt reads plaintext from r and writes age-encrypted ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer, passphrase string) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if e.workFactor > 0 {
		recipient.SetWorkFactor(e.workFactor)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return nil
}

// Decrypt reads age-encrypted ciphertext from r and writes plaintext to w.
func (e *AgeEncryptor) Decrypt(r io.Reader, w io.Writer, passphrase string) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}
	if e.workFactor > defaultMaxWorkFactor {
		identity.SetMaxWorkFactor(e.workFactor)
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return ErrWrongPassphrase
		}
		return fmt.Errorf("creating decrypted reader: %w", err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}

	return nil
}

// NeedsPassphrase always reports true.
func (e *AgeEncryptor) NeedsPassphrase() bool {
	return true
}
