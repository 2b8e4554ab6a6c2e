package fv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// StoredNameLayout is the timestamp layout embedded in stored names.
// Second precision: two files with the same name ingested within one second collide.
const StoredNameLayout = "20060102_150405"

// sniffLen is how many leading bytes are inspected to detect the MIME type.
const sniffLen = 3072

// IngestionResult describes one file successfully copied into the vault.
type IngestionResult struct {
	SourcePath   string
	OriginalName string
	StoredName   string
	StoredPath   string
	Size         int64
	TypeLabel    string
	Extension    string // lowercase, with leading dot
	MimeType     string
}

// IngestReport is the outcome of consuming a candidate list.
// Results and Failures keep the order of the candidates.
type IngestReport struct {
	Results   []*IngestionResult
	Failures  []*OpError
	Processed int
	Cancelled bool
}

// Ingestor copies candidates into a vault one at a time.
type Ingestor struct {
	fsmgr  FilesystemManager
	vault  Vault
	clock  Clock
	logger Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(fsmgr FilesystemManager, vault Vault, clock Clock, logger Logger) *Ingestor {
	return &Ingestor{
		fsmgr:  fsmgr,
		vault:  vault,
		clock:  clock,
		logger: logger,
	}
}

// StoredName builds the vault name {stem}_{timestamp}{ext} for an original file name.
func StoredName(originalName string, at time.Time) string {
	stem, ext := splitExt(originalName)
	return fmt.Sprintf("%s_%s%s", stem, at.Format(StoredNameLayout), ext)
}

// Ingest copies every candidate into the vault. A failing candidate is
// recorded in the report and the next one is processed. cancel is checked
// before each candidate; once it reports true no further copies are started.
// Progress is reported after each candidate as processed/total.
func (in *Ingestor) Ingest(candidates []*Candidate, progress ProgressReporter, cancel CancelChecker) *IngestReport {
	if progress == nil {
		progress = NopProgress{}
	}
	report := &IngestReport{}
	total := len(candidates)

	for _, c := range candidates {
		if cancel != nil && cancel.Cancelled() {
			report.Cancelled = true
			break
		}

		result, opErr := in.ingestOne(c)
		report.Processed++
		if opErr != nil {
			report.Failures = append(report.Failures, opErr)
			in.logger.Warn("ingest failed", "path", c.Path(), "err", opErr)
			progress.Status(fmt.Sprintf("Failed: %s: %v", c.Name(), opErr.Err))
		} else {
			report.Results = append(report.Results, result)
			in.logger.Debug("file ingested", "path", c.Path(), "stored", result.StoredName)
			progress.Status("Processed: " + c.Name())
		}
		progress.Progress(float64(report.Processed) / float64(total))
	}

	return report
}

// ingestOne copies a single candidate.
func (in *Ingestor) ingestOne(c *Candidate) (*IngestionResult, *OpError) {
	src, err := in.fsmgr.Open(c)
	if err != nil {
		return nil, newOpError(ErrItemRead, c.Path(), err)
	}
	defer src.Close()

	br := bufio.NewReaderSize(src, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, newOpError(ErrItemRead, c.Path(), err)
	}
	mime := mimetype.Detect(head).String()

	storedName := StoredName(c.Name(), in.clock.Now())
	tracked := &readTracker{r: br}

	storedPath, err := in.vault.Put(storedName, tracked, c.Size())
	switch {
	case err == nil:
	case errors.Is(err, ErrNameCollision):
		return nil, newOpError(ErrNameCollision, c.Path(), fmt.Errorf("%s is already in the vault", storedName))
	case tracked.err != nil:
		return nil, newOpError(ErrItemRead, c.Path(), tracked.err)
	case errors.Is(err, ErrSizeMismatch):
		return nil, newOpError(ErrItemRead, c.Path(), fmt.Errorf("source changed while copying: %w", err))
	default:
		return nil, newOpError(ErrItemWrite, c.Path(), err)
	}

	if p, ok := in.vault.(MetadataPreserver); ok {
		if err := p.Preserve(storedName, c.Info()); err != nil {
			in.logger.Debug("metadata not preserved", "stored", storedName, "err", err)
		}
	}

	return &IngestionResult{
		SourcePath:   c.Path(),
		OriginalName: c.Name(),
		StoredName:   storedName,
		StoredPath:   storedPath,
		Size:         c.Size(),
		TypeLabel:    Classify(c.Ext()),
		Extension:    c.Ext(),
		MimeType:     mime,
	}, nil
}

// readTracker remembers the first read error so source failures can be told
// apart from vault write failures.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
