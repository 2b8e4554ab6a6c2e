package fv

import "io/fs"

// Candidate is a regular file discovered by a scan.
// Candidates are created by FilesystemManager.Walk and consumed once by the Ingestor.
type Candidate struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

// NewCandidate creates a Candidate from its components.
// This is primarily for use by FilesystemManager implementations.
func NewCandidate(absPath, relPath string, info fs.FileInfo) *Candidate {
	return &Candidate{
		absPath: absPath,
		relPath: relPath,
		info:    info,
	}
}

// Path returns the absolute source path.
func (c *Candidate) Path() string {
	return c.absPath
}

// RelativePath returns the path relative to the scanned root.
func (c *Candidate) RelativePath() string {
	return c.relPath
}

// Name returns the basename of the file.
func (c *Candidate) Name() string {
	return c.info.Name()
}

// Ext returns the normalized (lowercase, dotted) extension, or "" if there is none.
func (c *Candidate) Ext() string {
	return NormalizeExt(c.Name())
}

// Size returns the size recorded when the candidate was discovered.
func (c *Candidate) Size() int64 {
	return c.info.Size()
}

// Info returns the file info cached at discovery time.
func (c *Candidate) Info() fs.FileInfo {
	return c.info
}
