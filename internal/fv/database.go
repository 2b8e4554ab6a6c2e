package fv

import (
	"time"

	"fv-go/internal/model"
)

// Database is the metadata store for file records and batch history.
// Every write is an independent single-row statement.
type Database interface {
	// AddFile inserts a record and returns the assigned id.
	AddFile(record *model.FileRecord) (int64, error)

	// ListFiles returns all records, newest first.
	ListFiles() ([]*model.FileRecord, error)

	// SearchFiles returns records whose original name, category, tags or
	// description contain term, case-insensitively, newest first.
	SearchFiles(term string) ([]*model.FileRecord, error)

	// FindFile returns a record by id, or nil if there is none.
	FindFile(id int64) (*model.FileRecord, error)

	// TouchFileAccess sets the last access time of a record.
	TouchFileAccess(id int64, at time.Time) error

	// UpdateFileDetails replaces the user-editable fields of a record.
	UpdateFileDetails(id int64, category string, tags []string, description string) error

	// DeleteFile removes a record.
	DeleteFile(id int64) error

	// CreateBatch records the start of an import batch.
	CreateBatch(entry *model.BatchEntry) error

	// FinishBatch records the outcome of an import batch.
	FinishBatch(id string, outcome string, ingested, failed int64, finishedAt time.Time) error

	// ListBatches returns the most recent batches, newest first.
	ListBatches(limit int) ([]*model.BatchEntry, error)

	// BackupTo writes a consistent snapshot of the store to path.
	BackupTo(path string) error

	// Close closes the database connection.
	Close() error
}
