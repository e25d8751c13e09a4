// Package timeutil provides the clocks that stamp runs, frames and live
// messages.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the wall clock seen by the run loop, capture sources and the
// live hub.
type Clock interface {
	Now() time.Time
	// NewTicker returns a Ticker delivering the time every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks of a Clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

// FrameTimeline stamps frames of recorded media by position instead of by
// decode time, so a file processed faster or slower than real time still
// carries its own timeline.
type FrameTimeline struct {
	Start    time.Time
	Interval time.Duration
}

// NewFrameTimeline returns a timeline starting at start for media recorded
// at fps frames per second. ok is false when fps is not a usable rate, as
// reported by live devices and some containers.
func NewFrameTimeline(start time.Time, fps float64) (FrameTimeline, bool) {
	if !(fps > 0) || fps > 1000 {
		return FrameTimeline{}, false
	}
	return FrameTimeline{Start: start, Interval: time.Duration(float64(time.Second) / fps)}, true
}

// At returns the timestamp of the frame at index.
func (t FrameTimeline) At(index int) time.Time {
	return t.Start.Add(time.Duration(index) * t.Interval)
}

// MockClock is a manually advanced clock for tests.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMockClock returns a MockClock set to t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and fires every ticker that came due.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*mockTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTicker{ch: make(chan time.Time, 1), interval: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

type mockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// fire sends at most one tick per Advance, dropping it when the previous
// tick is still unread, like time.Ticker.
func (t *mockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || now.Before(t.next) {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
	t.next = now.Add(t.interval)
}
