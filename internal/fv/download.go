package fv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"fv-go/internal/model"
)

// DownloadResult is the outcome of copying one stored file out of the vault.
// Err is set when Outcome is StateFailed.
type DownloadResult struct {
	Outcome     State
	Record      *model.FileRecord
	Destination string
	Bytes       int64
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// download copies a stored file to dest. There is exactly one work item, so
// progress is reported by bytes copied. A failed or cancelled copy never
// touches dest, even when overwriting.
func download(ctx context.Context, fsmgr FilesystemManager, vault Vault, clock Clock, logger Logger,
	record *model.FileRecord, dest string, overwrite bool, progress ProgressReporter) *DownloadResult {
	if progress == nil {
		progress = NopProgress{}
	}
	result := &DownloadResult{Record: record, Destination: dest, StartedAt: clock.Now()}
	finish := func(state State, err error) *DownloadResult {
		result.Outcome = state
		result.Err = err
		result.FinishedAt = clock.Now()
		logger.Info("download finished", "id", record.ID, "dest", dest, "outcome", state.String(), "bytes", result.Bytes)
		return result
	}

	progress.Status("Starting download...")

	src, err := vault.Open(record.StoredName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return finish(StateFailed, newOpError(ErrSourceNotFound, record.StoredPath, err))
		}
		return finish(StateFailed, newOpError(ErrItemRead, record.StoredPath, err))
	}
	defer src.Close()

	dst, err := fsmgr.Create(dest, overwrite)
	if err != nil {
		return finish(StateFailed, newOpError(ErrItemWrite, dest, err))
	}

	cw := &copyProgress{ctx: ctx, total: record.Size, progress: progress}
	tracked := &readTracker{r: src}
	n, copyErr := io.Copy(io.MultiWriter(dst, cw), tracked)
	result.Bytes = n

	if copyErr != nil {
		if err := dst.Discard(); err != nil {
			logger.Warn("partial download not removed", "dest", dest, "err", err)
		}
		switch {
		case errors.Is(copyErr, context.Canceled), errors.Is(copyErr, context.DeadlineExceeded):
			progress.Status("Download cancelled.")
			return finish(StateCancelled, nil)
		case tracked.err != nil:
			return finish(StateFailed, newOpError(ErrItemRead, record.StoredPath, tracked.err))
		default:
			return finish(StateFailed, newOpError(ErrItemWrite, dest, copyErr))
		}
	}
	if err := dst.Commit(); err != nil {
		return finish(StateFailed, newOpError(ErrItemWrite, dest, err))
	}

	progress.Progress(1)
	progress.Status(fmt.Sprintf("Downloaded to %s", dest))
	return finish(StateCompleted, nil)
}

// copyProgress is a write-only sink that turns byte counts into progress
// fractions and fails the copy once ctx is done.
type copyProgress struct {
	ctx      context.Context
	total    int64
	written  int64
	progress ProgressReporter
}

func (c *copyProgress) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	c.written += int64(len(p))
	if c.total > 0 && c.written < c.total {
		c.progress.Progress(float64(c.written) / float64(c.total))
	}
	return len(p), nil
}
