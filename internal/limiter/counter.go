package limiter

import (
	"context"
	"time"
)

// Window is a view of one rule's counter.
type Window struct {
	Admitted bool          // set by Acquire when the request was counted
	Count    int64         // requests counted in the current window
	ResetIn  time.Duration // time left before the window resets, zero when idle
}

// Counter tracks request counts per rule key inside fixed windows. A window
// resets once its duration has elapsed since it started.
type Counter interface {
	// Acquire counts one request if the window still has capacity. The
	// read-check-increment is a single atomic step per key.
	Acquire(ctx context.Context, key string, window time.Duration, limit int64) (Window, error)
	// Increment counts one request regardless of capacity.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Peek reads the window without changing it.
	Peek(ctx context.Context, key string, window time.Duration) (Window, error)
}
