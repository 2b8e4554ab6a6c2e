package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultCategory is assigned to imports that name no category.
const DefaultCategory = "Other"

// DefaultWorkFactor is the scrypt work factor (log2 N) used for catalog exports.
const DefaultWorkFactor = 18

// Config represents the main configuration for fv.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Vault      VaultConfig      `toml:"vault"`
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Import     ImportConfig     `toml:"import"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// VaultConfig represents configuration for the vault holding imported copies.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory", or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores such as MinIO
}

// DatabaseConfig represents configuration for the metadata catalog.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// FilesystemConfig holds scan-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// ImportConfig holds defaults applied to every import.
type ImportConfig struct {
	DefaultCategory string `toml:"default_category"`
}

// EncryptionConfig selects how catalog exports are protected.
type EncryptionConfig struct {
	Type       string `toml:"type"`                  // "age" (default) or "none"
	WorkFactor int    `toml:"work_factor,omitempty"` // scrypt log2 N, only used for type=age
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vault: VaultConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "vault"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Import: ImportConfig{DefaultCategory: DefaultCategory},
		Encryption: EncryptionConfig{
			Type:       "age",
			WorkFactor: DefaultWorkFactor,
		},
	}
}

// Validate reports configuration that cannot work, before anything is opened.
func (c *Config) Validate() error {
	var errs []error
	switch c.Vault.Type {
	case "", "filesystem":
		if c.Vault.Root == "" {
			errs = append(errs, errors.New("filesystem vault requires root to be set"))
		}
	case "memory":
	case "s3":
		if c.Vault.S3Bucket == "" {
			errs = append(errs, errors.New("s3 vault requires s3_bucket to be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vault type: %s", c.Vault.Type))
	}

	switch c.Database.Type {
	case "", "sqlite":
		if c.Database.DataDir == "" {
			errs = append(errs, errors.New("sqlite database requires data_dir to be set"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database type: %s", c.Database.Type))
	}

	switch c.Encryption.Type {
	case "", "age", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown encryption type: %s", c.Encryption.Type))
	}
	if c.Encryption.WorkFactor < 0 || c.Encryption.WorkFactor > 30 {
		errs = append(errs, fmt.Errorf("work_factor must be between 0 and 30, got %d", c.Encryption.WorkFactor))
	}

	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Import.DefaultCategory == "" {
		cfg.Import.DefaultCategory = DefaultCategory
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
