package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-source ignore file. Its patterns apply to the scan
// of the directory that contains it.
const IgnoreFileName = ".fvignore"

// defaultIgnorePatterns are always applied regardless of config or .fvignore.
// Only the root ignore file is read, so only that one is skipped.
var defaultIgnorePatterns = []string{"/" + IgnoreFileName}

// ignoreRule is one parsed pattern.
//
//	*.log        any file or directory named like *.log, at any depth
//	cache/       directories named cache, at any depth
//	build/*.o    the relative path build/*.o from the scan root
//	/notes.txt   notes.txt in the scan root only
type ignoreRule struct {
	glob     string
	anchored bool // match the whole relative path instead of the basename
	dirOnly  bool
}

func (r ignoreRule) matches(relSlash string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	subject := path.Base(relSlash)
	if r.anchored {
		subject = relSlash
	}
	ok, err := path.Match(r.glob, subject)
	return err == nil && ok
}

// IgnoreMatcher decides which scan entries are skipped.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw patterns. Blank lines and lines starting with
// '#' are skipped, as are patterns that are not valid globs.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		r := ignoreRule{}
		if strings.HasSuffix(raw, "/") {
			r.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		r.anchored = strings.Contains(raw, "/")
		raw = strings.TrimPrefix(raw, "/")
		if raw == "" {
			continue
		}
		r.glob = raw
		if _, err := path.Match(r.glob, ""); errors.Is(err, path.ErrBadPattern) {
			continue
		}
		m.rules = append(m.rules, r)
	}
	return m
}

// Match reports whether the file at relativePath (relative to the scan root)
// is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.match(relativePath, false)
}

// MatchDir reports whether the directory at relativePath is ignored, which
// excludes everything below it.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.match(relativePath, true)
}

func (m *IgnoreMatcher) match(relativePath string, isDir bool) bool {
	if relativePath == "" || relativePath == "." {
		return false
	}
	rel := filepath.ToSlash(relativePath)
	for _, r := range m.rules {
		if r.matches(rel, isDir) {
			return true
		}
	}
	return false
}

// With returns a matcher holding the rules of m followed by extra.
// m is returned unchanged when extra adds nothing.
func (m *IgnoreMatcher) With(extra []string) *IgnoreMatcher {
	added := NewIgnoreMatcher(extra)
	if len(added.rules) == 0 {
		return m
	}
	rules := make([]ignoreRule, 0, len(m.rules)+len(added.rules))
	rules = append(append(rules, m.rules...), added.rules...)
	return &IgnoreMatcher{rules: rules}
}

// ParseIgnoreFile returns the lines of an ignore file. A missing file yields
// no patterns and no error.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
