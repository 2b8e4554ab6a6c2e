package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fv-go/internal/database/migrations"
	"fv-go/internal/fv"
	"fv-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const fileColumns = `id, original_name, stored_name, stored_path, file_size, file_type, mime_type,
	category, tags, description, date_added, last_accessed`

const batchColumns = `id, source_dir, category, started_at, finished_at, outcome, ingested_count, failed_count`

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the catalog at path and applies pending migrations.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every statement is serialized, and ":memory:" stays a
	// single database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.FileRecord, error) {
	var r model.FileRecord
	var tags string
	err := row.Scan(&r.ID, &r.OriginalName, &r.StoredName, &r.StoredPath, &r.Size, &r.TypeLabel, &r.MimeType,
		&r.Category, &tags, &r.Description, &r.DateAdded, &r.LastAccessed)
	if err != nil {
		return nil, err
	}
	r.Tags = model.SplitTags(tags)
	return &r, nil
}

func (s *SQLiteDatabase) queryFiles(query string, args ...any) ([]*model.FileRecord, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.FileRecord
	for rows.Next() {
		r, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// File operations

func (s *SQLiteDatabase) AddFile(record *model.FileRecord) (int64, error) {
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO files (original_name, stored_name, stored_path, file_size, file_type, mime_type,
			category, tags, description, date_added, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.OriginalName, record.StoredName, record.StoredPath, record.Size, record.TypeLabel, record.MimeType,
		record.Category, model.JoinTags(record.Tags), record.Description,
		record.DateAdded.UTC(), utcNullTime(record.LastAccessed))
	if err != nil {
		return 0, fmt.Errorf("inserting file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted file id: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) ListFiles() ([]*model.FileRecord, error) {
	records, err := s.queryFiles(`SELECT ` + fileColumns + ` FROM files ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return records, nil
}

// SearchFiles matches term as a literal substring; LIKE wildcards in term are escaped.
func (s *SQLiteDatabase) SearchFiles(term string) ([]*model.FileRecord, error) {
	pattern := "%" + escapeLike(term) + "%"
	records, err := s.queryFiles(`SELECT `+fileColumns+` FROM files
		WHERE original_name LIKE ?1 ESCAPE '\'
		   OR category LIKE ?1 ESCAPE '\'
		   OR tags LIKE ?1 ESCAPE '\'
		   OR description LIKE ?1 ESCAPE '\'
		ORDER BY date_added DESC, id DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching files: %w", err)
	}
	return records, nil
}

func (s *SQLiteDatabase) FindFile(id int64) (*model.FileRecord, error) {
	row := s.db.QueryRowContext(context.Background(), `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	r, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return r, nil
}

func (s *SQLiteDatabase) TouchFileAccess(id int64, at time.Time) error {
	_, err := s.db.ExecContext(context.Background(), `UPDATE files SET last_accessed = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating last access: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateFileDetails(id int64, category string, tags []string, description string) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE files SET category = ?, tags = ?, description = ? WHERE id = ?`,
		category, model.JoinTags(tags), description, id)
	if err != nil {
		return fmt.Errorf("updating file details: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteFile(id int64) error {
	_, err := s.db.ExecContext(context.Background(), `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Batch history operations

func (s *SQLiteDatabase) CreateBatch(entry *model.BatchEntry) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO import_batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SourceDir, entry.Category, entry.StartedAt.UTC(), utcNullTime(entry.FinishedAt),
		entry.Outcome, entry.IngestedCount, entry.FailedCount)
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishBatch(id string, outcome string, ingested, failed int64, finishedAt time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE import_batches SET outcome = ?, ingested_count = ?, failed_count = ?, finished_at = ? WHERE id = ?`,
		outcome, ingested, failed, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing batch: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing batch: no batch with id %s", id)
	}
	return nil
}

// ListBatches returns at most limit batches; limit <= 0 returns all of them.
func (s *SQLiteDatabase) ListBatches(limit int) ([]*model.BatchEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+batchColumns+` FROM import_batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var entries []*model.BatchEntry
	for rows.Next() {
		var e model.BatchEntry
		if err := rows.Scan(&e.ID, &e.SourceDir, &e.Category, &e.StartedAt, &e.FinishedAt,
			&e.Outcome, &e.IngestedCount, &e.FailedCount); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return entries, nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
// destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func utcNullTime(t sql.NullTime) sql.NullTime {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}

// Compile-time check that SQLiteDatabase implements fv.Database interface
var _ fv.Database = (*SQLiteDatabase)(nil)
