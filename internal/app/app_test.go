package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"fv-go/internal/config"
	"fv-go/internal/fv"
	"fv-go/internal/testutil"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Encryption.WorkFactor = 10
	cfg.Import.DefaultCategory = "Inbox"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *FVApp {
	t.Helper()
	a, err := NewFVApp(context.Background(), cfg, "test", WithClock(testutil.FixedClock()))
	if err != nil {
		t.Fatalf("NewFVApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNewFVApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Vault.Type = "ftp"

	if _, err := NewFVApp(context.Background(), cfg, "test"); err == nil {
		t.Fatal("NewFVApp() expected error for unknown vault type")
	}
}

func TestNewFVApp_StoreUnavailable(t *testing.T) {
	cfg := newTestConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Database.DataDir = filepath.Join(blocker, "db")

	_, err := NewFVApp(context.Background(), cfg, "test")
	if !errors.Is(err, fv.ErrStoreUnavailable) {
		t.Fatalf("NewFVApp() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestFVApp_ImportAndQuery(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg)
	src := writeSource(t, map[string]string{
		"report.pdf":     "%PDF-1.4",
		"notes.txt":      "notes",
		"sub/photo.jpg":  "jpg",
		"skip/debug.log": "log",
	})
	if err := os.WriteFile(filepath.Join(src, ".fvignore"), []byte("skip/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := a.Import(context.Background(), fv.ImportRequest{SourceDir: src, Tags: []string{"t1"}}, nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Outcome != fv.StateCompleted {
		t.Fatalf("Outcome = %v, Err = %v", result.Outcome, result.Err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Category != "Inbox" {
			t.Errorf("%s category = %q, want configured default %q", r.OriginalName, r.Category, "Inbox")
		}
		if _, err := os.Stat(filepath.Join(cfg.Vault.Root, r.StoredName)); err != nil {
			t.Errorf("stored copy of %s missing: %v", r.OriginalName, err)
		}
	}

	listed, err := a.ListFiles()
	if err != nil || len(listed) != 3 {
		t.Fatalf("ListFiles() = %d records, err = %v", len(listed), err)
	}

	found, err := a.SearchFiles("photo")
	if err != nil || len(found) != 1 || found[0].OriginalName != "photo.jpg" {
		t.Fatalf("SearchFiles(photo) = %v, err = %v", found, err)
	}

	desc := "holiday"
	updated, err := a.UpdateFile(found[0].ID, fv.FileUpdate{Description: &desc})
	if err != nil || updated.Description != "holiday" {
		t.Fatalf("UpdateFile() = %+v, err = %v", updated, err)
	}

	if err := a.DeleteFile(found[0].ID, true); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, err := a.GetFile(found[0].ID); !errors.Is(err, fv.ErrNotFound) {
		t.Errorf("GetFile() after delete error = %v, want ErrNotFound", err)
	}
	if !a.Operation().Failed() {
		t.Error("operation not marked failed after a failing query")
	}

	history, err := a.GetHistory(5)
	if err != nil || len(history) != 1 || history[0].IngestedCount != 3 {
		t.Errorf("GetHistory() = %+v, err = %v", history, err)
	}
}

// blockingProgress holds the import at its first status message until released.
type blockingProgress struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *blockingProgress) Progress(float64) {}

func (p *blockingProgress) Status(string) {
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
}

func TestFVApp_ImportBusy(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	src := writeSource(t, map[string]string{"a.txt": "a"})

	progress := &blockingProgress{started: make(chan struct{}), release: make(chan struct{})}
	first, err := a.StartImport(context.Background(), fv.ImportRequest{SourceDir: src}, progress)
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	<-progress.started

	if _, err := a.StartImport(context.Background(), fv.ImportRequest{SourceDir: src}, nil); !errors.Is(err, fv.ErrBusy) {
		t.Errorf("second StartImport() error = %v, want ErrBusy", err)
	}
	if state := first.Batch().State(); state != fv.StateRunning {
		t.Errorf("first batch state = %v, want running", state)
	}

	// Queries use their own slot.
	if _, err := a.ListFiles(); err != nil {
		t.Errorf("ListFiles() during import error = %v", err)
	}

	close(progress.release)
	result, err := first.Wait()
	if err != nil || result.Outcome != fv.StateCompleted {
		t.Fatalf("first import = %v, err = %v", result, err)
	}
}

func TestFVApp_ImportThroughSymlinkedSource(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	src := writeSource(t, map[string]string{"report.pdf": "%PDF-1.4 body"})
	link := filepath.Join(t.TempDir(), "docs")
	if err := os.Symlink(src, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result, err := a.Import(context.Background(), fv.ImportRequest{SourceDir: link}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != fv.StateCompleted || len(result.Records) != 1 {
		t.Fatalf("Outcome = %v, records = %d, failures = %v; want 1 record",
			result.Outcome, len(result.Records), result.Failures)
	}
	if result.Records[0].OriginalName != "report.pdf" {
		t.Errorf("OriginalName = %q", result.Records[0].OriginalName)
	}
}

func TestFVApp_ImportCancelled(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	src := writeSource(t, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := a.Import(ctx, fv.ImportRequest{SourceDir: src}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != fv.StateCancelled {
		t.Errorf("Outcome = %v, want cancelled", result.Outcome)
	}
}

func TestFVApp_Download(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	src := writeSource(t, map[string]string{"report.pdf": "%PDF-1.4 body"})
	rec := mustImportOne(t, a, src)

	t.Run("into directory", func(t *testing.T) {
		dest := t.TempDir()
		result, err := a.Download(context.Background(), rec, dest, false, nil)
		if err != nil || result.Outcome != fv.StateCompleted {
			t.Fatalf("Download() = %+v, err = %v", result, err)
		}
		got, err := os.ReadFile(filepath.Join(dest, "report.pdf"))
		if err != nil || string(got) != "%PDF-1.4 body" {
			t.Errorf("downloaded content = %q, err = %v", got, err)
		}
	})

	t.Run("refuses existing file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "out.pdf")
		if err := os.WriteFile(dest, []byte("keep"), 0644); err != nil {
			t.Fatal(err)
		}
		result, err := a.Download(context.Background(), rec, dest, false, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !errors.Is(result.Err, fv.ErrItemWrite) {
			t.Errorf("Err = %v, want ErrItemWrite", result.Err)
		}
		if got, _ := os.ReadFile(dest); string(got) != "keep" {
			t.Errorf("existing file changed to %q", got)
		}
	})

	t.Run("cancelled overwrite keeps existing file", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "out.pdf")
		if err := os.WriteFile(dest, []byte("keep"), 0644); err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := a.Download(ctx, rec, dest, true, nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Outcome != fv.StateCancelled {
			t.Errorf("Outcome = %v, want cancelled", result.Outcome)
		}
		if got, _ := os.ReadFile(dest); string(got) != "keep" {
			t.Errorf("existing file changed to %q", got)
		}
		if entries, _ := os.ReadDir(dir); len(entries) != 1 {
			t.Errorf("temp file left behind: %v", entries)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := a.Download(context.Background(), 4242, t.TempDir(), false, nil)
		if !errors.Is(err, fv.ErrNotFound) {
			t.Errorf("Download() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFVApp_OpenFile(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	src := writeSource(t, map[string]string{"notes.txt": "hi"})
	id := mustImportOne(t, a, src)

	var opened string
	orig := systemOpen
	systemOpen = func(path string) error { opened = path; return nil }
	t.Cleanup(func() { systemOpen = orig })

	path, err := a.OpenFile(id, false)
	if err != nil {
		t.Fatalf("OpenFile(print) error = %v", err)
	}
	if opened != "" {
		t.Error("OpenFile without launch called the system opener")
	}

	if _, err := a.OpenFile(id, true); err != nil {
		t.Fatalf("OpenFile(launch) error = %v", err)
	}
	if opened != path {
		t.Errorf("opened %q, want %q", opened, path)
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
	}{
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		name, args := openCommand(tt.goos, "/v/a.txt")
		if name != tt.wantName || args[len(args)-1] != "/v/a.txt" {
			t.Errorf("openCommand(%s) = %s %v", tt.goos, name, args)
		}
	}
}

func mustImportOne(t *testing.T, a *FVApp, src string) int64 {
	t.Helper()
	result, err := a.Import(context.Background(), fv.ImportRequest{SourceDir: src}, nil)
	if err != nil || len(result.Records) != 1 {
		t.Fatalf("Import() = %+v, err = %v", result, err)
	}
	return result.Records[0].ID
}
