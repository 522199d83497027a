package limiter

import (
	"context"
	"errors"
	"sync"
	"time"
)

import (
	"github.com/tilinna/clock"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned without touching the store while the breaker
// is open.
var ErrBreakerOpen = errors.New("window store breaker open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalf
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalf:
		return "half"
	default:
		return "closed"
	}
}

// Breaker guards a remote Counter. After Failures consecutive store errors
// it opens for Cooldown and fails fast, so the governor's fail policy kicks
// in without waiting on store timeouts. Once the cooldown ends a single
// probe goes through: success closes the breaker, failure reopens it.
type Breaker struct {
	inner    Counter
	failures int
	cooldown time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	state   breakerState
	errs    int
	until   time.Time
	probing bool
}

var _ Counter = (*Breaker)(nil)

type BreakerOption func(*Breaker)

func WithBreakerClock(c clock.Clock) BreakerOption {
	return func(b *Breaker) { b.clock = c }
}

func WithBreakerLogger(l *zap.Logger) BreakerOption {
	return func(b *Breaker) { b.logger = l }
}

func NewBreaker(inner Counter, failures int, cooldown time.Duration, opts ...BreakerOption) *Breaker {
	if failures <= 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = time.Second
	}
	b := &Breaker{
		inner:    inner,
		failures: failures,
		cooldown: cooldown,
		clock:    clock.Realtime(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Acquire(ctx context.Context, key string, size time.Duration, limit int64) (Window, error) {
	if err := b.enter(); err != nil {
		return Window{}, err
	}
	w, err := b.inner.Acquire(ctx, key, size, limit)
	b.done(err)
	return w, err
}

func (b *Breaker) Increment(ctx context.Context, key string, size time.Duration) (int64, error) {
	if err := b.enter(); err != nil {
		return 0, err
	}
	n, err := b.inner.Increment(ctx, key, size)
	b.done(err)
	return n, err
}

// Peek is read-only and bypasses the breaker state machine.
func (b *Breaker) Peek(ctx context.Context, key string, size time.Duration) (Window, error) {
	return b.inner.Peek(ctx, key, size)
}

// State is "closed", "open" or "half".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *Breaker) enter() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		if b.clock.Now().Before(b.until) {
			return ErrBreakerOpen
		}
		b.state = breakerHalf
		b.probing = true
		b.logger.Info("window store breaker half-open")
		return nil
	case breakerHalf:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) done(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	// a cancelled caller says nothing about the store
	if errors.Is(err, context.Canceled) {
		return
	}
	if err == nil {
		if b.state != breakerClosed {
			b.logger.Info("window store breaker closed")
		}
		b.state = breakerClosed
		b.errs = 0
		return
	}
	b.errs++
	if b.state == breakerHalf || b.errs >= b.failures {
		b.state = breakerOpen
		b.until = b.clock.Now().Add(b.cooldown)
		b.logger.Warn("window store breaker open",
			zap.Int("failures", b.errs),
			zap.Duration("cooldown", b.cooldown),
			zap.Error(err))
	}
}
