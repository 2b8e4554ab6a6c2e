package testutil

import (
	"strconv"
	"sync"
	"time"
)

// ReferenceTime is the instant FixedClock starts at. Stored names derived
// from it carry the suffix _20240115_103000.
var ReferenceTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an fv.Clock that only moves when told to. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock returns a clock reading start.
func NewStubClock(start time.Time) *StubClock {
	return &StubClock{now: start}
}

// FixedClock returns a StubClock at ReferenceTime.
func FixedClock() *StubClock {
	return NewStubClock(ReferenceTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out "id-1", "id-2", ... in call order.
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return "id-" + strconv.Itoa(g.next)
}
