package fv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fv-go/internal/model"
)

// DefaultCategory is used when an import names no category.
const DefaultCategory = "Other"

// FVService is the orchestration layer that coordinates the pipeline, the
// vault and the metadata store for the presentation layer.
type FVService struct {
	database  Database
	vault     Vault
	fsmgr     FilesystemManager
	encryptor CatalogEncryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewFVService creates a new FVService with the provided dependencies.
func NewFVService(database Database, vault Vault, fsmgr FilesystemManager, encryptor CatalogEncryptor, logger Logger, clock Clock, idgen IDGenerator) *FVService {
	return &FVService{
		database:  database,
		vault:     vault,
		fsmgr:     fsmgr,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// ImportRequest describes one import from a source directory.
type ImportRequest struct {
	SourceDir   string
	Category    string
	Tags        []string
	Description string
	Filter      *ExtensionFilter
}

// ImportResult is a finished batch plus what happened when persisting it.
// Unrecorded lists files that were copied into the vault but could not be
// written to the store; each wraps ErrStoreUnavailable.
type ImportResult struct {
	*BatchResult
	Records    []*model.FileRecord
	Unrecorded []*OpError
}

// NewBatch creates an idle batch wired to the service's filesystem and vault.
func (s *FVService) NewBatch(req BatchRequest) *Batch {
	return NewBatch(s.idgen.New(), req, s.fsmgr, s.vault, s.clock, s.logger)
}

// Import runs a batch and records every copied file in the store.
// Results of a cancelled batch are recorded too: their copies are already in
// the vault.
func (s *FVService) Import(ctx context.Context, req ImportRequest, progress ProgressReporter) *ImportResult {
	batch := s.NewBatch(BatchRequest{SourceDir: req.SourceDir, Filter: req.Filter})
	return s.RunImport(ctx, batch, req, progress)
}

// RunImport runs a batch created by NewBatch and persists its results.
// It lets callers keep the batch handle to query state or cancel it.
func (s *FVService) RunImport(ctx context.Context, batch *Batch, req ImportRequest, progress ProgressReporter) *ImportResult {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultCategory
	}

	startedAt := s.clock.Now()
	historyOK := true
	err := s.database.CreateBatch(&model.BatchEntry{
		ID:        batch.ID(),
		SourceDir: req.SourceDir,
		Category:  category,
		StartedAt: startedAt,
		Outcome:   StateRunning.String(),
	})
	if err != nil {
		historyOK = false
		s.logger.Warn("batch history not recorded", "batch", batch.ID(), "err", err)
	}

	br := batch.Run(ctx, progress)
	result := &ImportResult{BatchResult: br}

	for _, r := range br.Results {
		now := s.clock.Now()
		record := &model.FileRecord{
			OriginalName: r.OriginalName,
			StoredName:   r.StoredName,
			StoredPath:   r.StoredPath,
			Size:         r.Size,
			TypeLabel:    r.TypeLabel,
			MimeType:     r.MimeType,
			Category:     category,
			Tags:         model.CleanTags(req.Tags),
			Description:  req.Description,
			DateAdded:    now,
		}
		record.LastAccessed.Time, record.LastAccessed.Valid = now, true

		id, err := s.database.AddFile(record)
		if err != nil {
			opErr := newOpError(ErrStoreUnavailable, r.StoredPath, err)
			result.Unrecorded = append(result.Unrecorded, opErr)
			s.logger.Error("copied file not recorded", "stored", r.StoredPath, "err", err)
			continue
		}
		record.ID = id
		result.Records = append(result.Records, record)
	}

	if historyOK {
		failed := int64(len(br.Failures) + len(result.Unrecorded))
		if err := s.database.FinishBatch(batch.ID(), br.Outcome.String(), int64(len(result.Records)), failed, br.FinishedAt); err != nil {
			s.logger.Warn("batch history not finalized", "batch", batch.ID(), "err", err)
		}
	}

	return result
}

// ListFiles returns every record, newest first.
func (s *FVService) ListFiles() ([]*model.FileRecord, error) {
	records, err := s.database.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return records, nil
}

// SearchFiles returns records matching term, newest first.
// A blank term lists everything.
func (s *FVService) SearchFiles(term string) ([]*model.FileRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListFiles()
	}
	s.logger.Debug("searching files", "term", term)
	records, err := s.database.SearchFiles(term)
	if err != nil {
		return nil, fmt.Errorf("searching files: %w", err)
	}
	return records, nil
}

// GetFile returns a record by id.
func (s *FVService) GetFile(id int64) (*model.FileRecord, error) {
	record, err := s.database.FindFile(id)
	if err != nil {
		return nil, fmt.Errorf("finding file %d: %w", id, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return record, nil
}

// OpenFile checks that the stored copy of a record is present locally,
// updates its last access time and returns the local path to open.
func (s *FVService) OpenFile(id int64) (string, error) {
	record, err := s.GetFile(id)
	if err != nil {
		return "", err
	}

	path, ok := s.vault.LocalPath(record.StoredName)
	if !ok {
		return "", fmt.Errorf("vault keeps no local copy of %s", record.StoredPath)
	}
	if _, err := s.fsmgr.Stat(path); err != nil {
		return "", newOpError(ErrSourceNotFound, path, err)
	}

	if err := s.database.TouchFileAccess(id, s.clock.Now()); err != nil {
		return "", newOpError(ErrStoreUnavailable, fmt.Sprint(id), err)
	}
	s.logger.Info("file opened", "id", id, "path", path)
	return path, nil
}

// FileUpdate holds the editable fields of a record. Nil fields are left unchanged.
type FileUpdate struct {
	Category    *string
	Tags        []string
	SetTags     bool
	Description *string
}

// UpdateFile changes the category, tags or description of a record.
func (s *FVService) UpdateFile(id int64, upd FileUpdate) (*model.FileRecord, error) {
	record, err := s.GetFile(id)
	if err != nil {
		return nil, err
	}
	if upd.Category != nil {
		record.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.SetTags {
		record.Tags = model.CleanTags(upd.Tags)
	}
	if upd.Description != nil {
		record.Description = *upd.Description
	}

	if err := s.database.UpdateFileDetails(id, record.Category, record.Tags, record.Description); err != nil {
		return nil, fmt.Errorf("updating file %d: %w", id, err)
	}
	s.logger.Info("file updated", "id", id)
	return record, nil
}

// DeleteFile removes a record. With purge the stored copy is removed too;
// otherwise the copy stays in the vault.
func (s *FVService) DeleteFile(id int64, purge bool) error {
	record, err := s.GetFile(id)
	if err != nil {
		return err
	}
	if err := s.database.DeleteFile(id); err != nil {
		return fmt.Errorf("deleting file %d: %w", id, err)
	}
	s.logger.Info("file deleted", "id", id, "purge", purge)

	if purge {
		if err := s.vault.Remove(record.StoredName); err != nil {
			return fmt.Errorf("removing stored copy %s: %w", record.StoredPath, err)
		}
	}
	return nil
}

// Download copies the stored file of a record to dest.
func (s *FVService) Download(ctx context.Context, id int64, dest string, overwrite bool, progress ProgressReporter) (*DownloadResult, error) {
	record, err := s.GetFile(id)
	if err != nil {
		return nil, err
	}
	return download(ctx, s.fsmgr, s.vault, s.clock, s.logger, record, dest, overwrite, progress), nil
}

// GetHistory returns the most recent import batches, newest first.
func (s *FVService) GetHistory(limit int) ([]*model.BatchEntry, error) {
	entries, err := s.database.ListBatches(limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return entries, nil
}

// ExportCatalog writes an encrypted snapshot of the metadata store to w.
func (s *FVService) ExportCatalog(w io.Writer, passphrase string) error {
	tmp, err := os.CreateTemp("", "fv-catalog-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for catalog snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// VACUUM INTO refuses to write over an existing file.
	os.Remove(tmpPath)
	defer os.Remove(tmpPath)

	if err := s.database.BackupTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting catalog: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening catalog snapshot: %w", err)
	}
	defer f.Close()

	if err := s.encryptor.Encrypt(f, w, passphrase); err != nil {
		return fmt.Errorf("encrypting catalog snapshot: %w", err)
	}
	s.logger.Info("catalog exported")
	return nil
}

// IsNotFound reports whether err means an unknown record id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
