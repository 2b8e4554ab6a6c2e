package fv

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Wildcard is the filter token that accepts every file.
const Wildcard = "*"

// ExtensionFilter decides which scanned files become candidates.
// The zero value accepts nothing; use ParseExtensionFilter or AllFiles.
type ExtensionFilter struct {
	wildcard bool
	exts     map[string]struct{}
}

// AllFiles returns the wildcard filter.
func AllFiles() *ExtensionFilter {
	return &ExtensionFilter{wildcard: true}
}

// ParseExtensionFilter builds a filter from raw extension tokens.
// No tokens, or any "*" token, yields the wildcard filter.
func ParseExtensionFilter(tokens []string) (*ExtensionFilter, error) {
	if len(tokens) == 0 || slices.Contains(tokens, Wildcard) {
		return AllFiles(), nil
	}

	exts := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		norm := normalizeExtToken(tok)
		if norm == "" || norm == "." || strings.ContainsAny(norm[1:], `./\`) {
			return nil, fmt.Errorf("invalid extension %q", tok)
		}
		exts[norm] = struct{}{}
	}
	return &ExtensionFilter{exts: exts}, nil
}

// Accepts reports whether a file with the given name passes the filter.
func (f *ExtensionFilter) Accepts(name string) bool {
	if f.wildcard {
		return true
	}
	ext := NormalizeExt(name)
	if ext == "" {
		return false
	}
	_, ok := f.exts[ext]
	return ok
}

// IsWildcard reports whether the filter accepts everything.
func (f *ExtensionFilter) IsWildcard() bool {
	return f.wildcard
}

// Extensions returns the accepted extensions in sorted order, or nil for the wildcard.
func (f *ExtensionFilter) Extensions() []string {
	if f.wildcard {
		return nil
	}
	out := make([]string, 0, len(f.exts))
	for ext := range f.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (f *ExtensionFilter) String() string {
	if f.wildcard {
		return Wildcard
	}
	return strings.Join(f.Extensions(), " ")
}

// filterPresets are the file type groups offered when importing.
var filterPresets = map[string][]string{
	"all":      {Wildcard},
	"pdf":      {".pdf"},
	"word":     {".doc", ".docx"},
	"excel":    {".xls", ".xlsx"},
	"images":   {".jpg", ".jpeg", ".png", ".gif", ".bmp"},
	"video":    {".mp4", ".avi", ".mkv"},
	"audio":    {".mp3", ".wav"},
	"cad":      {".dwg", ".dxf"},
	"archives": {".zip", ".rar", ".7z"},
}

// FilterPreset returns the filter for a named preset such as "images".
func FilterPreset(name string) (*ExtensionFilter, error) {
	tokens, ok := filterPresets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown file type %q (known: %s)", name, strings.Join(FilterPresetNames(), ", "))
	}
	return ParseExtensionFilter(tokens)
}

// FilterPresetNames lists the preset names in sorted order.
func FilterPresetNames() []string {
	names := make([]string, 0, len(filterPresets))
	for name := range filterPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
