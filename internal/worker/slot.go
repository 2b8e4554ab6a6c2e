// Package worker runs long operations off the caller's goroutine while
// allowing at most one operation of each kind at a time.
package worker

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"fv-go/internal/fv"
)

// Slot admits one task at a time. Submitting while a task is running fails
// with fv.ErrBusy instead of queueing.
type Slot struct {
	name   string
	pool   *ants.Pool
	busy   atomic.Bool
	logger *slog.Logger
}

// Option configures a Slot.
type Option func(*Slot)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Slot) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSlot creates a slot backed by a single-worker ants pool.
func NewSlot(name string, opts ...Option) (*Slot, error) {
	s := &Slot{name: name, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(1, ants.WithPanicHandler(func(p any) {
		s.logger.Error("worker panic escaped task", "slot", s.name, "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("creating %s worker pool: %w", name, err)
	}
	s.pool = pool
	return s, nil
}

// Name returns the slot name.
func (s *Slot) Name() string { return s.name }

// Busy reports whether a task is running.
func (s *Slot) Busy() bool { return s.busy.Load() }

// Release stops the pool. Running tasks finish; new submissions fail.
func (s *Slot) Release() {
	s.pool.Release()
}

// Task is the handle of a submitted function.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes and returns its result.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.value, t.err
}

// Submit runs fn on the slot's worker. It returns fv.ErrBusy when another
// task of the slot has not finished yet. A panic in fn becomes the task's error.
func Submit[T any](s *Slot, fn func() (T, error)) (*Task[T], error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", s.name, fv.ErrBusy)
	}

	t := &Task[T]{done: make(chan struct{})}
	err := s.pool.Submit(func() {
		defer close(t.done)
		defer s.busy.Store(false)
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("task panicked", "slot", s.name, "panic", p)
				t.err = fmt.Errorf("%s task panicked: %v", s.name, p)
			}
		}()
		t.value, t.err = fn()
	})
	if err != nil {
		s.busy.Store(false)
		return nil, fmt.Errorf("submitting %s task: %w", s.name, err)
	}
	return t, nil
}
