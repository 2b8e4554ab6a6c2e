package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const barWidth = 30

// TerminalProgress renders progress as a single rewritten line:
//
//	[##########--------------------]  33%  Found 12 files
//
// With a byte total it also shows the amount copied. Safe for concurrent use.
type TerminalProgress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int64
	fraction float64
	status   string
	drawn    bool
}

// NewTerminalProgress creates a progress line on w. total is the number of
// bytes the task copies, or zero when progress counts files.
func NewTerminalProgress(w io.Writer, total int64) *TerminalProgress {
	return &TerminalProgress{w: w, total: total}
}

func (p *TerminalProgress) Progress(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fraction = min(max(fraction, 0), 1)
	p.draw()
}

func (p *TerminalProgress) Status(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = message
	p.draw()
}

// Finish ends the progress line.
func (p *TerminalProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func (p *TerminalProgress) draw() {
	fmt.Fprint(p.w, "\r\033[K"+p.line())
	p.drawn = true
}

func (p *TerminalProgress) line() string {
	filled := int(p.fraction * barWidth)
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat("#", filled))
	b.WriteString(strings.Repeat("-", barWidth-filled))
	fmt.Fprintf(&b, "] %3.0f%%", p.fraction*100)
	if p.total > 0 {
		done := int64(p.fraction * float64(p.total))
		fmt.Fprintf(&b, "  %s / %s", FormatSize(done), FormatSize(p.total))
	}
	if p.status != "" {
		b.WriteString("  ")
		b.WriteString(p.status)
	}
	return b.String()
}

// FormatSize renders a byte count with IEC units, e.g. "1.5 MiB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatTime renders a timestamp the way listings show it, in local time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// FormatAge renders how long ago t was, e.g. "3 days ago".
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
