package fv_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"fv-go/internal/fv"
	"fv-go/internal/testutil"
)

func newBatch(fsmgr fv.FilesystemManager, vault fv.Vault, req fv.BatchRequest) *fv.Batch {
	return fv.NewBatch("batch-1", req, fsmgr, vault, testutil.FixedClock(), fv.NewNopLogger())
}

func TestBatch_Run_Completed(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/report.pdf", []byte("%PDF-1.4"))
	fsmgr.AddFile("/src/notes.txt", []byte("notes"))

	b := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/src"})
	if b.State() != fv.StateIdle {
		t.Fatalf("initial State() = %v, want idle", b.State())
	}

	progress := &testutil.RecordingProgress{}
	result := b.Run(context.Background(), progress)

	if result.Outcome != fv.StateCompleted || b.State() != fv.StateCompleted {
		t.Fatalf("Outcome = %v, State = %v; want completed", result.Outcome, b.State())
	}
	if result.Err != nil {
		t.Errorf("Err = %v", result.Err)
	}
	if result.ID != "batch-1" || result.SourceDir != "/src" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(result.Results))
	}
	if b.Progress() != 1 {
		t.Errorf("Progress() = %v, want 1", b.Progress())
	}
	statuses := progress.Statuses()
	if !slices.Contains(statuses, "Found 2 files") || statuses[len(statuses)-1] != "Done! 2 files processed." {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestBatch_Run_FilterAppliesBeforeIngest(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddFile("/src/report.pdf", []byte("%PDF-1.4"))
	fsmgr.AddFile("/src/notes.txt", []byte("notes"))
	filter, _ := fv.ParseExtensionFilter([]string{".pdf"})

	result := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/src", Filter: filter}).
		Run(context.Background(), nil)

	if len(result.Results) != 1 || result.Results[0].OriginalName != "report.pdf" {
		t.Errorf("Results = %v, want only report.pdf", result.Results)
	}
}

func TestBatch_Run_EmptySource(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddDirectory("/empty")
	progress := &testutil.RecordingProgress{}

	result := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/empty"}).
		Run(context.Background(), progress)

	if result.Outcome != fv.StateCompleted || len(result.Results) != 0 || len(result.Failures) != 0 {
		t.Errorf("result = %+v, want completed with nothing", result)
	}
	if !slices.Contains(progress.Statuses(), "No files found!") {
		t.Errorf("statuses = %v", progress.Statuses())
	}
}

func TestBatch_Run_Failed(t *testing.T) {
	t.Run("source not found", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		vault := testutil.NewTestVault()
		result := newBatch(fsmgr, vault, fv.BatchRequest{SourceDir: "/missing"}).Run(context.Background(), nil)

		if result.Outcome != fv.StateFailed || !errors.Is(result.Err, fv.ErrSourceNotFound) {
			t.Errorf("Outcome = %v, Err = %v; want failed with ErrSourceNotFound", result.Outcome, result.Err)
		}
		var opErr *fv.OpError
		if !errors.As(result.Err, &opErr) || opErr.Path != "/missing" {
			t.Errorf("Err does not name the source: %v", result.Err)
		}
		if len(vault.Names()) != 0 {
			t.Error("failed batch wrote to the vault")
		}
	})

	t.Run("source is a file", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/file.txt", []byte("x"))
		result := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/file.txt"}).Run(context.Background(), nil)
		if !errors.Is(result.Err, fv.ErrSourceNotFound) {
			t.Errorf("Err = %v, want ErrSourceNotFound", result.Err)
		}
	})

	t.Run("vault cannot be created", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/src/a.txt", []byte("a"))
		vault := testutil.NewFaultyVault(testutil.NewTestVault())
		vault.PrepareErr = errors.New("read-only filesystem")

		result := newBatch(fsmgr, vault, fv.BatchRequest{SourceDir: "/src"}).Run(context.Background(), nil)
		if result.Outcome != fv.StateFailed || !errors.Is(result.Err, fv.ErrVaultUncreatable) {
			t.Errorf("Outcome = %v, Err = %v; want failed with ErrVaultUncreatable", result.Outcome, result.Err)
		}
		if len(result.Results) != 0 {
			t.Error("failed batch has results")
		}
	})

	t.Run("per-item failures do not fail the batch", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/src/a.txt", []byte("a")).OpenErr = errors.New("denied")
		fsmgr.AddFile("/src/b.txt", []byte("b"))

		result := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/src"}).Run(context.Background(), nil)
		if result.Outcome != fv.StateCompleted || len(result.Results) != 1 || len(result.Failures) != 1 {
			t.Errorf("result = %+v, want completed with one failure", result)
		}
	})
}

func TestBatch_Run_OnlyOnce(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	fsmgr.AddDirectory("/src")
	b := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/src"})

	b.Run(context.Background(), nil)
	second := b.Run(context.Background(), nil)
	if second.Outcome != fv.StateFailed || second.Err == nil {
		t.Errorf("second Run() = %v, %v; want failed", second.Outcome, second.Err)
	}
	if b.State() != fv.StateCompleted {
		t.Errorf("State() after second Run() = %v, want completed", b.State())
	}
}

func TestBatch_Cancel(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	for _, name := range []string{"a", "b", "c", "d"} {
		fsmgr.AddFile("/src/"+name+".txt", []byte(name))
	}

	t.Run("cancel mid-ingest keeps finished copies", func(t *testing.T) {
		vault := testutil.NewTestVault()
		b := newBatch(fsmgr, vault, fv.BatchRequest{SourceDir: "/src"})
		progress := &testutil.RecordingProgress{}
		progress.OnProgress = func(f float64) {
			if f >= 0.5 {
				b.Cancel()
			}
		}

		result := b.Run(context.Background(), progress)

		if result.Outcome != fv.StateCancelled || b.State() != fv.StateCancelled {
			t.Fatalf("Outcome = %v, want cancelled", result.Outcome)
		}
		if result.Err != nil {
			t.Errorf("Err = %v, want nil", result.Err)
		}
		if len(result.Results) != 2 || len(vault.Names()) != 2 {
			t.Errorf("results = %d, vault copies = %d; want 2 and 2", len(result.Results), len(vault.Names()))
		}
		if !slices.IsSorted(progress.Fractions()) {
			t.Errorf("progress not monotone: %v", progress.Fractions())
		}
	})

	t.Run("context cancelled before start", func(t *testing.T) {
		vault := testutil.NewTestVault()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := newBatch(fsmgr, vault, fv.BatchRequest{SourceDir: "/src"}).Run(ctx, nil)
		if result.Outcome != fv.StateCancelled {
			t.Errorf("Outcome = %v, want cancelled", result.Outcome)
		}
		if len(result.Results) != 0 || len(vault.Names()) != 0 {
			t.Error("cancelled batch copied files")
		}
	})
}

func TestBatch_ConcurrentStateQueries(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	for i := range 50 {
		fsmgr.AddFile("/src/"+string(rune('a'+i%26))+string(rune('a'+i/26))+".txt", []byte("x"))
	}
	b := newBatch(fsmgr, testutil.NewTestVault(), fv.BatchRequest{SourceDir: "/src"})

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0.0
		for {
			select {
			case <-done:
				return
			default:
			}
			p := b.Progress()
			if p < last {
				t.Errorf("Progress() decreased from %v to %v", last, p)
				return
			}
			last = p
			_ = b.State()
		}
	}()

	result := b.Run(context.Background(), nil)
	close(done)
	wg.Wait()

	if len(result.Results) != 50 {
		t.Errorf("len(Results) = %d, want 50", len(result.Results))
	}
}
