package model

import (
	"database/sql"
	"strings"
	"time"
)

// FileRecord is a file stored in the vault together with its catalog metadata.
// ID is assigned by the database; no other uniqueness is enforced.
type FileRecord struct {
	ID           int64
	OriginalName string // Basename of the source file at import time
	StoredName   string // Disambiguated name inside the vault
	StoredPath   string // Location of the copy (local path or s3:// URL)
	Size         int64  // Size in bytes
	TypeLabel    string // Human-readable type derived from the extension
	MimeType     string // Sniffed from content, may be empty
	Category     string
	Tags         []string
	Description  string
	DateAdded    time.Time
	LastAccessed sql.NullTime
}

// JoinTags encodes tags the way they are stored: comma separated, trimmed, blanks dropped.
func JoinTags(tags []string) string {
	return strings.Join(CleanTags(tags), ",")
}

// SplitTags decodes the stored tag column.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return CleanTags(strings.Split(raw, ","))
}

// CleanTags trims every tag and drops empty ones.
func CleanTags(tags []string) []string {
	var clean []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			clean = append(clean, t)
		}
	}
	return clean
}

// BatchEntry is the history row of one import batch.
type BatchEntry struct {
	ID            string // UUID
	SourceDir     string
	Category      string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	Outcome       string // "completed", "cancelled" or "failed"
	IngestedCount int64
	FailedCount   int64
}
