package fv

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so stored names and timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts batch ID generation.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Logger provides structured logging for the service layer.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all output.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// ProgressReporter receives progress of a running batch or download.
// Fractions are in [0, 1] and never decrease within one task.
type ProgressReporter interface {
	Progress(fraction float64)
	Status(message string)
}

// NopProgress ignores all progress.
type NopProgress struct{}

func (NopProgress) Progress(float64) {}
func (NopProgress) Status(string)    {}

// CancelChecker is polled between units of work. Once it reports true the
// task stops requesting new work.
type CancelChecker interface {
	Cancelled() bool
}
