package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fv-go/internal/config"
	"fv-go/internal/database"
	"fv-go/internal/encryption"
	"fv-go/internal/fs"
	"fv-go/internal/fv"
	"fv-go/internal/model"
	"fv-go/internal/vault"
	"fv-go/internal/worker"
)

// FVApp is the application layer between the CLI and FVService.
// It constructs all dependencies from config, runs operations on worker
// slots (one import, one query and one download at a time), and releases
// everything on Close.
type FVApp struct {
	cfg       *config.Config
	db        fv.Database
	vault     fv.Vault
	fsmgr     fv.FilesystemManager
	encryptor fv.CatalogEncryptor
	service   *fv.FVService
	op        *Operation
	logger    *slog.Logger
	logFile   *os.File

	importSlot   *worker.Slot
	querySlot    *worker.Slot
	downloadSlot *worker.Slot
}

type appOptions struct {
	stderrLevel slog.Level
	clock       fv.Clock
}

// Option configures NewFVApp.
type Option func(*appOptions)

// WithVerbose also sends info and debug log lines to stderr.
func WithVerbose(verbose bool) Option {
	return func(o *appOptions) {
		if verbose {
			o.stderrLevel = slog.LevelDebug
		}
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(clock fv.Clock) Option {
	return func(o *appOptions) {
		o.clock = clock
	}
}

// NewFVApp creates a fully wired FVApp from the given config.
// operation identifies the CLI command being run (e.g. "import", "list").
// The caller must call Close when done.
func NewFVApp(ctx context.Context, cfg *config.Config, operation string, opts ...Option) (*FVApp, error) {
	o := appOptions{stderrLevel: slog.LevelWarn, clock: fv.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	op := NewOperation(operation, o.clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, o.stderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("%w: %w", fv.ErrStoreUnavailable, err)
	}

	a := &FVApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		op:        op,
		logger:    logger,
		logFile:   logFile,
	}

	slots := []**worker.Slot{&a.importSlot, &a.querySlot, &a.downloadSlot}
	for i, name := range []string{"import", "query", "download"} {
		s, err := worker.NewSlot(name, worker.WithLogger(logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		*slots[i] = s
	}

	a.service = fv.NewFVService(db, v, fsmgr, enc, &slogAdapter{l: logger}, o.clock, fv.UUIDGenerator{})
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *FVApp) Config() *config.Config { return a.cfg }

// Operation returns the CLI operation the app was created for.
func (a *FVApp) Operation() *Operation { return a.op }

// NeedsPassphrase reports whether catalog export and restore use a passphrase.
func (a *FVApp) NeedsPassphrase() bool { return a.encryptor.NeedsPassphrase() }

// ImportTask is a running import. Its batch can be queried or cancelled
// while the import runs.
type ImportTask struct {
	batch *fv.Batch
	task  *worker.Task[*fv.ImportResult]
}

// Batch returns the batch being run.
func (t *ImportTask) Batch() *fv.Batch { return t.batch }

// Done is closed when the import has finished.
func (t *ImportTask) Done() <-chan struct{} { return t.task.Done() }

// Wait blocks until the import finishes.
func (t *ImportTask) Wait() (*fv.ImportResult, error) { return t.task.Wait() }

// StartImport begins importing req.SourceDir on the import slot. A blank
// category falls back to the configured default. It fails with fv.ErrBusy
// while another import runs.
func (a *FVApp) StartImport(ctx context.Context, req fv.ImportRequest, progress fv.ProgressReporter) (*ImportTask, error) {
	if strings.TrimSpace(req.Category) == "" {
		req.Category = a.cfg.Import.DefaultCategory
	}
	batch := a.service.NewBatch(fv.BatchRequest{SourceDir: req.SourceDir, Filter: req.Filter})

	task, err := worker.Submit(a.importSlot, func() (*fv.ImportResult, error) {
		result := a.service.RunImport(ctx, batch, req, progress)
		if result.Outcome == fv.StateFailed {
			a.op.Fail(result.Err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return &ImportTask{batch: batch, task: task}, nil
}

// Import runs an import and waits for it to finish.
func (a *FVApp) Import(ctx context.Context, req fv.ImportRequest, progress fv.ProgressReporter) (*fv.ImportResult, error) {
	t, err := a.StartImport(ctx, req, progress)
	if err != nil {
		return nil, err
	}
	return t.Wait()
}

// query runs fn on the query slot and waits for its result.
func query[T any](a *FVApp, fn func() (T, error)) (T, error) {
	task, err := worker.Submit(a.querySlot, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := task.Wait()
	a.op.Fail(err)
	return v, err
}

// ListFiles returns every record, newest first.
func (a *FVApp) ListFiles() ([]*model.FileRecord, error) {
	return query(a, a.service.ListFiles)
}

// SearchFiles returns records matching term, newest first.
func (a *FVApp) SearchFiles(term string) ([]*model.FileRecord, error) {
	return query(a, func() ([]*model.FileRecord, error) { return a.service.SearchFiles(term) })
}

// GetFile returns one record.
func (a *FVApp) GetFile(id int64) (*model.FileRecord, error) {
	return query(a, func() (*model.FileRecord, error) { return a.service.GetFile(id) })
}

// OpenFile records an access to a stored file and returns its local path.
// With launch set, the file is also handed to the system opener.
func (a *FVApp) OpenFile(id int64, launch bool) (string, error) {
	path, err := query(a, func() (string, error) { return a.service.OpenFile(id) })
	if err != nil || !launch {
		return path, err
	}
	if err := systemOpen(path); err != nil {
		a.op.Fail(err)
		return path, fmt.Errorf("opening %s: %w", path, err)
	}
	return path, nil
}

// UpdateFile edits the category, tags or description of a record.
func (a *FVApp) UpdateFile(id int64, upd fv.FileUpdate) (*model.FileRecord, error) {
	return query(a, func() (*model.FileRecord, error) { return a.service.UpdateFile(id, upd) })
}

// DeleteFile removes a record, and with purge its stored copy.
func (a *FVApp) DeleteFile(id int64, purge bool) error {
	_, err := query(a, func() (struct{}, error) { return struct{}{}, a.service.DeleteFile(id, purge) })
	return err
}

// GetHistory returns the most recent import batches.
func (a *FVApp) GetHistory(limit int) ([]*model.BatchEntry, error) {
	return query(a, func() ([]*model.BatchEntry, error) { return a.service.GetHistory(limit) })
}

// Download copies a stored file to rawDest on the download slot. When rawDest
// is an existing directory the file keeps its original name inside it.
func (a *FVApp) Download(ctx context.Context, id int64, rawDest string, overwrite bool, progress fv.ProgressReporter) (*fv.DownloadResult, error) {
	dest, err := filepath.Abs(rawDest)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}

	task, err := worker.Submit(a.downloadSlot, func() (*fv.DownloadResult, error) {
		if info, err := a.fsmgr.Stat(dest); err == nil && info.IsDir() {
			record, err := a.service.GetFile(id)
			if err != nil {
				return nil, err
			}
			dest = filepath.Join(dest, record.OriginalName)
		}
		return a.service.Download(ctx, id, dest, overwrite, progress)
	})
	if err != nil {
		return nil, err
	}

	result, err := task.Wait()
	a.op.Fail(err)
	if result != nil && result.Outcome == fv.StateFailed {
		a.op.Fail(result.Err)
	}
	return result, err
}

// ExportCatalog writes an encrypted snapshot of the catalog to dest.
// An existing dest is replaced only with overwrite set, and only once the
// snapshot is complete.
func (a *FVApp) ExportCatalog(dest, passphrase string, overwrite bool) error {
	w, err := a.fsmgr.Create(dest, overwrite)
	if err != nil {
		return err
	}

	_, err = query(a, func() (struct{}, error) { return struct{}{}, a.service.ExportCatalog(w, passphrase) })
	if err == nil {
		err = w.Commit()
	}
	if err != nil {
		w.Discard()
		a.op.Fail(err)
		return err
	}
	if err := os.Chmod(dest, 0o600); err != nil {
		a.logger.Warn("snapshot permissions not restricted", "path", dest, "err", err)
	}
	return nil
}

// Close releases the worker slots and closes the database and log file.
func (a *FVApp) Close() error {
	for _, s := range []*worker.Slot{a.importSlot, a.querySlot, a.downloadSlot} {
		if s == nil {
			continue
		}
		if s.Busy() {
			a.logger.Warn("closing while a task is still running", "slot", s.Name())
		}
		s.Release()
	}

	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}

	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Truncate(time.Millisecond))
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
