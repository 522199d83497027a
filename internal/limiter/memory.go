package limiter

import (
	"context"
	"sync"
	"time"
)

import (
	"github.com/tilinna/clock"
)

// Memory is a process-local Counter. Each key owns its own lock, so keys
// never contend with each other.
type Memory struct {
	clock   clock.Clock
	windows sync.Map // key -> *window
}

var _ Counter = (*Memory)(nil)

type window struct {
	mu    sync.Mutex
	start time.Time
	count int64
}

type MemoryOption func(*Memory)

// WithClock sets the time source.
func WithClock(c clock.Clock) MemoryOption {
	return func(m *Memory) { m.clock = c }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{clock: clock.Realtime()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) get(key string) *window {
	if w, ok := m.windows.Load(key); ok {
		return w.(*window)
	}
	w, _ := m.windows.LoadOrStore(key, &window{})
	return w.(*window)
}

// rollover starts a new window once size has elapsed. Caller holds w.mu.
func (w *window) rollover(now time.Time, size time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= size {
		w.start = now
		w.count = 0
	}
}

func (w *window) resetIn(now time.Time, size time.Duration) time.Duration {
	if w.start.IsZero() {
		return 0
	}
	left := size - now.Sub(w.start)
	if left < 0 {
		return 0
	}
	return left
}

func (m *Memory) Acquire(_ context.Context, key string, size time.Duration, limit int64) (Window, error) {
	w := m.get(key)
	now := m.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollover(now, size)
	admitted := w.count < limit
	if admitted {
		w.count++
	}
	return Window{Admitted: admitted, Count: w.count, ResetIn: w.resetIn(now, size)}, nil
}

func (m *Memory) Increment(_ context.Context, key string, size time.Duration) (int64, error) {
	w := m.get(key)
	now := m.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollover(now, size)
	w.count++
	return w.count, nil
}

func (m *Memory) Peek(_ context.Context, key string, size time.Duration) (Window, error) {
	v, ok := m.windows.Load(key)
	if !ok {
		return Window{}, nil
	}
	w := v.(*window)
	now := m.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.start.IsZero() || now.Sub(w.start) >= size {
		return Window{}, nil
	}
	return Window{Count: w.count, ResetIn: w.resetIn(now, size)}, nil
}
