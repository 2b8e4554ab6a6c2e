package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fv-go/internal/database"
	"fv-go/internal/database/migrations"
	"fv-go/internal/encryption"
)

func exportTestCatalog(t *testing.T, passphrase string) (string, int64) {
	t.Helper()
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	id := mustImportOne(t, a, writeSource(t, map[string]string{"a.txt": "a"}))

	dest := filepath.Join(t.TempDir(), "catalog.age")
	if err := a.ExportCatalog(dest, passphrase, false); err != nil {
		t.Fatalf("ExportCatalog() error = %v", err)
	}
	return dest, id
}

func TestExportCatalog_RefusesExisting(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	dest := filepath.Join(t.TempDir(), "catalog.age")
	if err := os.WriteFile(dest, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := a.ExportCatalog(dest, "pw", false); err == nil {
		t.Fatal("ExportCatalog() expected error for existing file")
	}
	if got, _ := os.ReadFile(dest); string(got) != "old" {
		t.Errorf("existing export overwritten: %q", got)
	}
	if err := a.ExportCatalog(dest, "pw", true); err != nil {
		t.Fatalf("ExportCatalog(overwrite) error = %v", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("snapshot mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestExportCatalog_FailedOverwriteKeepsExisting(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	dir := t.TempDir()
	dest := filepath.Join(dir, "catalog.age")
	if err := os.WriteFile(dest, []byte("previous snapshot"), 0600); err != nil {
		t.Fatal(err)
	}

	// age refuses an empty passphrase, so the export fails after dest was claimed.
	if err := a.ExportCatalog(dest, "", true); err == nil {
		t.Fatal("ExportCatalog() with empty passphrase expected error")
	}
	if got, _ := os.ReadFile(dest); string(got) != "previous snapshot" {
		t.Errorf("existing snapshot = %q, want untouched", got)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestRestoreCatalog(t *testing.T) {
	snapshot, id := exportTestCatalog(t, "correct horse")

	cfg := newTestConfig(t)
	f, err := os.Open(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	version, err := RestoreCatalog(cfg, f, "correct horse", false)
	if err != nil {
		t.Fatalf("RestoreCatalog() error = %v", err)
	}
	latest, _ := migrations.LatestVersion()
	if version != latest {
		t.Errorf("version = %d, want %d", version, latest)
	}

	a := newTestApp(t, cfg)
	rec, err := a.GetFile(id)
	if err != nil || rec.OriginalName != "a.txt" {
		t.Errorf("restored record = %+v, err = %v", rec, err)
	}
}

func TestRestoreCatalog_Refusals(t *testing.T) {
	snapshot, _ := exportTestCatalog(t, "pw")
	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("existing catalog without force", func(t *testing.T) {
		cfg := newTestConfig(t)
		newTestApp(t, cfg) // creates the catalog

		_, err := RestoreCatalog(cfg, bytes.NewReader(data), "pw", false)
		if !errors.Is(err, ErrCatalogExists) {
			t.Fatalf("RestoreCatalog() error = %v, want ErrCatalogExists", err)
		}
		if _, err := RestoreCatalog(cfg, bytes.NewReader(data), "pw", true); err != nil {
			t.Fatalf("RestoreCatalog(force) error = %v", err)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		cfg := newTestConfig(t)
		_, err := RestoreCatalog(cfg, bytes.NewReader(data), "nope", false)
		if !errors.Is(err, encryption.ErrWrongPassphrase) {
			t.Fatalf("RestoreCatalog() error = %v, want ErrWrongPassphrase", err)
		}
		if _, err := os.Stat(database.CatalogPath(cfg.Database)); !os.IsNotExist(err) {
			t.Error("catalog created despite failed restore")
		}
	})

	t.Run("not a catalog", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Encryption.Type = "none"
		_, err := RestoreCatalog(cfg, bytes.NewReader(bytes.Repeat([]byte("plain text, not sqlite. "), 64)), "", false)
		if !errors.Is(err, ErrNotACatalog) {
			t.Fatalf("RestoreCatalog() error = %v, want ErrNotACatalog", err)
		}
	})

	t.Run("memory database", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Database.Type = "memory"
		if _, err := RestoreCatalog(cfg, bytes.NewReader(data), "pw", false); err == nil {
			t.Fatal("RestoreCatalog() expected error for memory database")
		}
	})
}

func TestFVApp_NeedsPassphrase(t *testing.T) {
	cfg := newTestConfig(t)
	if !newTestApp(t, cfg).NeedsPassphrase() {
		t.Error("age encryption should need a passphrase")
	}

	plain := newTestConfig(t)
	plain.Encryption.Type = "none"
	a, err := NewFVApp(context.Background(), plain, "test")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.NeedsPassphrase() {
		t.Error("plain encryption should not need a passphrase")
	}
}
