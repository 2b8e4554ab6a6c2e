package app

import (
	"time"
)

// Operation tracks the CLI command an FVApp was created for. Its ID tags
// every log line written during the command.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
	Err       error
}

// NewOperation creates an operation that started at now.
func NewOperation(name string, now time.Time) *Operation {
	now = now.UTC()
	id := now.Format("20060102T150405Z")
	if name != "" {
		id += "-" + name
	}
	return &Operation{
		ID:        id,
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// Fail marks the operation as failed. The first error is kept.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = "error"
	if op.Err == nil {
		op.Err = err
	}
}

// Failed reports whether Fail was called with an error.
func (op *Operation) Failed() bool {
	return op.Err != nil
}
