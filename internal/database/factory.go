package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fv-go/internal/config"
	"fv-go/internal/fv"
)

// CatalogFileName is the SQLite file inside the configured data directory.
const CatalogFileName = "catalog.db"

// CatalogPath returns the catalog file location for a sqlite database config.
func CatalogPath(cfg config.DatabaseConfig) string {
	return filepath.Join(cfg.DataDir, CatalogFileName)
}

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (fv.Database, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return open(CatalogPath(cfg))
	case "memory":
		return open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// open avoids returning a typed nil inside the interface.
func open(path string) (fv.Database, error) {
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
