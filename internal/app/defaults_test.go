package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		name       string
		configPath string
		home       string
		want       Defaults
	}{
		{
			name:       "uses env vars when set",
			configPath: "/custom/config.toml",
			home:       "/custom/fv",
			want: Defaults{
				ConfigPath: "/custom/config.toml",
				BaseDir:    "/custom/fv",
				LogDir:     "/custom/fv/log",
			},
		},
		{
			name: "falls back to home dir defaults",
			want: Defaults{
				ConfigPath: filepath.Join(homeDir, ".config", "fv.toml"),
				BaseDir:    filepath.Join(homeDir, ".local", "share", "fv"),
				LogDir:     filepath.Join(homeDir, ".local", "share", "fv", "log"),
			},
		},
		{
			name: "env vars are independent",
			home: "/data/fv",
			want: Defaults{
				ConfigPath: filepath.Join(homeDir, ".config", "fv.toml"),
				BaseDir:    "/data/fv",
				LogDir:     "/data/fv/log",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FV_CONFIG_PATH", tt.configPath)
			t.Setenv("FV_HOME", tt.home)

			got, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("GetDefaults() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
