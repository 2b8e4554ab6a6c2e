package app

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTerminalProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalProgress(&buf, 0)

	p.Status("Found 4 files")
	p.Progress(0.5)
	p.Finish()

	out := buf.String()
	lines := strings.Split(out, "\r\033[K")
	last := strings.TrimSuffix(lines[len(lines)-1], "\n")
	want := "[" + strings.Repeat("#", 15) + strings.Repeat("-", 15) + "]  50%  Found 4 files"
	if last != want {
		t.Errorf("last line = %q, want %q", last, want)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish() did not end the line")
	}
}

func TestTerminalProgress_Bytes(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalProgress(&buf, 2048)

	p.Progress(0.5)

	if !strings.Contains(buf.String(), "1.0 KiB / 2.0 KiB") {
		t.Errorf("output = %q, want byte counts", buf.String())
	}
}

func TestTerminalProgress_Clamps(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalProgress(&buf, 0)

	p.Progress(1.7)
	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("output = %q, want 100%%", buf.String())
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{-1, "0 B"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "-" {
		t.Errorf("FormatTime(zero) = %q, want %q", got, "-")
	}
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)
	if got := FormatTime(ts); got != "2024-01-15 10:30" {
		t.Errorf("FormatTime() = %q, want %q", got, "2024-01-15 10:30")
	}
}
