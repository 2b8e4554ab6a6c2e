package vault

import (
	"context"
	"fmt"
	"os"

	"fv-go/internal/config"
	"fv-go/internal/fv"
)

// Environment variables holding static S3 credentials. When unset, the
// default AWS credential chain applies.
const (
	EnvS3AccessKeyID     = "FV_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "FV_S3_SECRET_ACCESS_KEY"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (fv.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(), nil
	case "s3":
		return NewS3Vault(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     os.Getenv(EnvS3AccessKeyID),
			SecretAccessKey: os.Getenv(EnvS3SecretAccessKey),
		})
	case "filesystem", "":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem vault requires root to be set")
		}
		return NewFileSystemVault(cfg.Root), nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
