package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"fv-go/internal/config"
	"fv-go/internal/database"
	"fv-go/internal/database/migrations"
	"fv-go/internal/encryption"
)

var (
	// ErrCatalogExists is returned by RestoreCatalog when a catalog is
	// already present and force is not set.
	ErrCatalogExists = errors.New("catalog already exists")

	// ErrNotACatalog means the decrypted snapshot carries no fv schema.
	ErrNotACatalog = errors.New("snapshot is not an fv catalog")
)

// RestoreCatalog replaces the configured catalog with the encrypted snapshot
// read from src. The snapshot is decrypted next to the catalog, its schema
// version is checked and brought up to date, and only then is it moved into
// place. It returns the schema version the snapshot had.
func RestoreCatalog(cfg *config.Config, src io.Reader, passphrase string, force bool) (uint, error) {
	if cfg.Database.Type == "memory" {
		return 0, errors.New("cannot restore into an in-memory database")
	}
	if cfg.Database.DataDir == "" {
		return 0, errors.New("database data_dir is not set")
	}

	target := database.CatalogPath(cfg.Database)
	if _, err := os.Stat(target); err == nil && !force {
		return 0, fmt.Errorf("%w at %s (use --force to replace it)", ErrCatalogExists, target)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return 0, fmt.Errorf("creating encryptor: %w", err)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(cfg.Database.DataDir, ".restore-*.db")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := enc.Decrypt(src, tmp, passphrase); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	version, err := upgradeSnapshot(tmpPath)
	if err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return 0, fmt.Errorf("moving snapshot into place: %w", err)
	}
	return version, nil
}

// upgradeSnapshot checks the schema version of the database at path and
// applies pending migrations. Snapshots from a newer binary are refused.
func upgradeSnapshot(path string) (uint, error) {
	conn, err := database.OpenConnection(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotACatalog, err)
	}
	defer conn.Close()

	version, err := migrations.Version(conn)
	if errors.Is(err, migrations.ErrNoVersion) {
		return 0, ErrNotACatalog
	}
	if err != nil {
		// Not a SQLite file at all also lands here.
		return 0, fmt.Errorf("%w: %w", ErrNotACatalog, err)
	}

	latest, err := migrations.LatestVersion()
	if err != nil {
		return 0, err
	}
	if version > latest {
		return 0, fmt.Errorf("snapshot schema version %d is newer than this binary supports (%d)", version, latest)
	}
	if version < latest {
		if err := migrations.MigrateUp(conn); err != nil {
			return 0, fmt.Errorf("upgrading snapshot: %w", err)
		}
	}
	if err := migrations.CheckDBMigrationStatus(conn); err != nil {
		return 0, fmt.Errorf("verifying snapshot schema: %w", err)
	}
	return version, nil
}
