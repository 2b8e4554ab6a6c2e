package encryption

import (
	"fmt"

	"fv-go/internal/config"
	"fv-go/internal/fv"
)

// NewEncryptorFromConfig creates a CatalogEncryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (fv.CatalogEncryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg.WorkFactor), nil
	case "none":
		return NewPlainEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
