package testutil

import (
	"sync"
	"testing"

	"fv-go/internal/database"
	"fv-go/internal/fv"
	"fv-go/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// FailingDatabase wraps a database and fails AddFile for selected original names.
type FailingDatabase struct {
	fv.Database

	mu       sync.Mutex
	addErrs  map[string]error
	BatchErr error // returned by CreateBatch when set
}

// NewFailingDatabase wraps inner.
func NewFailingDatabase(inner fv.Database) *FailingDatabase {
	return &FailingDatabase{Database: inner, addErrs: make(map[string]error)}
}

// FailAdd makes AddFile of a record with the given original name fail with err.
func (d *FailingDatabase) FailAdd(originalName string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addErrs[originalName] = err
}

func (d *FailingDatabase) AddFile(record *model.FileRecord) (int64, error) {
	d.mu.Lock()
	err := d.addErrs[record.OriginalName]
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return d.Database.AddFile(record)
}

func (d *FailingDatabase) CreateBatch(entry *model.BatchEntry) error {
	if d.BatchErr != nil {
		return d.BatchErr
	}
	return d.Database.CreateBatch(entry)
}
