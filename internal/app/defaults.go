package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations fv uses when the config does not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves the default locations, checking environment variables first.
// Environment variables:
//   - FV_CONFIG_PATH: config file location (default: ~/.config/fv.toml)
//   - FV_HOME: base directory for vault, catalog and logs (default: ~/.local/share/fv)
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome("FV_CONFIG_PATH", ".config", "fv.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome("FV_HOME", ".local", "share", "fv")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env, or the home directory joined with rel.
func envOrHome(env string, rel ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
