package testutil

import "sync"

// RecordingProgress captures everything reported to it. Safe for concurrent use.
type RecordingProgress struct {
	mu        sync.Mutex
	fractions []float64
	statuses  []string

	// OnProgress, when set, is called after each recorded fraction.
	OnProgress func(fraction float64)
}

func (p *RecordingProgress) Progress(fraction float64) {
	p.mu.Lock()
	p.fractions = append(p.fractions, fraction)
	hook := p.OnProgress
	p.mu.Unlock()
	if hook != nil {
		hook(fraction)
	}
}

func (p *RecordingProgress) Status(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, message)
}

// Fractions returns a copy of the reported fractions in order.
func (p *RecordingProgress) Fractions() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.fractions...)
}

// Statuses returns a copy of the reported status messages in order.
func (p *RecordingProgress) Statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.statuses...)
}
