package fv

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a batch or download task.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// BatchRequest describes what a batch imports.
type BatchRequest struct {
	SourceDir string
	Filter    *ExtensionFilter
}

// BatchResult is the final outcome of a batch.
// Err is set only when Outcome is StateFailed; in that case nothing was copied.
type BatchResult struct {
	ID         string
	SourceDir  string
	Outcome    State
	Results    []*IngestionResult
	Failures   []*OpError
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Batch is one run of the import pipeline: resolve source, prepare vault,
// scan, ingest. It owns its state; callers query it rather than inferring it.
type Batch struct {
	id       string
	req      BatchRequest
	fsmgr    FilesystemManager
	vault    Vault
	ingestor *Ingestor
	clock    Clock
	logger   Logger

	mu        sync.Mutex
	state     State
	fraction  float64
	cancelled atomic.Bool
}

// NewBatch creates an idle batch.
func NewBatch(id string, req BatchRequest, fsmgr FilesystemManager, vault Vault, clock Clock, logger Logger) *Batch {
	if req.Filter == nil {
		req.Filter = AllFiles()
	}
	return &Batch{
		id:       id,
		req:      req,
		fsmgr:    fsmgr,
		vault:    vault,
		ingestor: NewIngestor(fsmgr, vault, clock, logger),
		clock:    clock,
		logger:   logger,
	}
}

// ID returns the batch id.
func (b *Batch) ID() string { return b.id }

// State returns the current state.
func (b *Batch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Progress returns the last reported progress fraction.
func (b *Batch) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fraction
}

// Cancel asks a running batch to stop before its next candidate.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
}

// Run executes the batch. It blocks until the batch reaches a terminal state.
// Cancelling ctx has the same effect as Cancel. A batch runs at most once.
func (b *Batch) Run(ctx context.Context, progress ProgressReporter) *BatchResult {
	if progress == nil {
		progress = NopProgress{}
	}
	result := &BatchResult{ID: b.id, SourceDir: b.req.SourceDir, StartedAt: b.clock.Now()}

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		result.Outcome = StateFailed
		result.Err = fmt.Errorf("batch %s already started", b.id)
		result.FinishedAt = b.clock.Now()
		return result
	}
	b.state = StateRunning
	b.mu.Unlock()

	finish := func(state State) *BatchResult {
		b.mu.Lock()
		b.state = state
		b.mu.Unlock()
		result.Outcome = state
		result.FinishedAt = b.clock.Now()
		b.logger.Info("batch finished", "batch", b.id, "outcome", state.String(),
			"ingested", len(result.Results), "failed", len(result.Failures))
		return result
	}

	checker := &batchCanceller{ctx: ctx, flag: &b.cancelled}
	tracker := &progressTracker{next: progress, batch: b}

	progress.Status("Starting import...")
	b.logger.Info("batch started", "batch", b.id, "source", b.req.SourceDir, "filter", b.req.Filter.String())

	root, err := b.fsmgr.ResolveDir(b.req.SourceDir)
	if err != nil {
		result.Err = newOpError(ErrSourceNotFound, b.req.SourceDir, err)
		progress.Status("Error: source folder not found")
		return finish(StateFailed)
	}
	result.SourceDir = root

	if err := b.vault.Prepare(); err != nil {
		result.Err = newOpError(ErrVaultUncreatable, root, err)
		progress.Status("Error: vault cannot be created")
		return finish(StateFailed)
	}

	warn := func(path string, err error) {
		b.logger.Warn("skipping unreadable directory", "path", path, "err", err)
		progress.Status("Skipped unreadable folder: " + path)
	}
	var candidates []*Candidate
	for c := range Scan(b.fsmgr, root, b.req.Filter, warn) {
		if checker.Cancelled() {
			progress.Status("Import cancelled.")
			return finish(StateCancelled)
		}
		candidates = append(candidates, c)
	}
	candidates = slices.Clip(candidates)

	progress.Status(fmt.Sprintf("Found %d files", len(candidates)))
	if len(candidates) == 0 {
		progress.Status("No files found!")
		return finish(StateCompleted)
	}

	report := b.ingestor.Ingest(candidates, tracker, checker)
	result.Results = report.Results
	result.Failures = report.Failures

	if report.Cancelled {
		progress.Status("Import cancelled.")
		return finish(StateCancelled)
	}
	progress.Status(fmt.Sprintf("Done! %d files processed.", len(report.Results)))
	return finish(StateCompleted)
}

// batchCanceller reports cancellation from either the batch flag or the context.
type batchCanceller struct {
	ctx  context.Context
	flag *atomic.Bool
}

func (c *batchCanceller) Cancelled() bool {
	if c.flag.Load() {
		return true
	}
	return c.ctx != nil && c.ctx.Err() != nil
}

// progressTracker records the latest fraction on the batch and forwards it.
// Values lower than the last one are dropped.
type progressTracker struct {
	next  ProgressReporter
	batch *Batch
}

func (t *progressTracker) Progress(fraction float64) {
	t.batch.mu.Lock()
	if fraction < t.batch.fraction {
		t.batch.mu.Unlock()
		return
	}
	t.batch.fraction = fraction
	t.batch.mu.Unlock()
	t.next.Progress(fraction)
}

func (t *progressTracker) Status(message string) {
	t.next.Status(message)
}
