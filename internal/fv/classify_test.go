package fv_test

import (
	"testing"
	"time"

	"fv-go/internal/fv"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".pdf", "PDF"},
		{".PDF", "PDF"},
		{"pdf", "PDF"},
		{" .Docx ", "Word Document"},
		{".xlsx", "Excel Spreadsheet"},
		{".pptx", "PowerPoint Presentation"},
		{".txt", "Text"},
		{".jpeg", "Image"},
		{".mkv", "Video"},
		{".wav", "Audio"},
		{".7z", "Compressed Archive"},
		{".dxf", "CAD Drawing"},
		{".xyz", fv.OtherLabel},
		{"", fv.OtherLabel},
		{".", fv.OtherLabel},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := fv.Classify(tt.ext); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", ".pdf"},
		{"REPORT.PDF", ".pdf"},
		{"archive.tar.gz", ".gz"},
		{"README", ""},
		{".bashrc", ""},
		{"..hidden.txt", ".txt"},
		{"trailing.", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fv.NormalizeExt(tt.name); got != tt.want {
				t.Errorf("NormalizeExt(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestStoredName(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		original string
		want     string
	}{
		{"report.pdf", "report_20240115_103000.pdf"},
		{"notes.TXT", "notes_20240115_103000.TXT"},
		{"archive.tar.gz", "archive.tar_20240115_103000.gz"},
		{"Makefile", "Makefile_20240115_103000"},
		{".bashrc", ".bashrc_20240115_103000"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			if got := fv.StoredName(tt.original, at); got != tt.want {
				t.Errorf("StoredName(%q) = %q, want %q", tt.original, got, tt.want)
			}
		})
	}
}
