package limiter

import (
	"context"
	"errors"
	"time"
)

import (
	"github.com/nanjiek/meetingkit/internal/repo"
)

// Redis is a Counter whose windows live in Redis, so several processes
// share them. Window timing follows the server's key expiry.
type Redis struct {
	repo repo.Repo
}

var _ Counter = (*Redis)(nil)

func NewRedis(r repo.Repo) *Redis {
	if r == nil {
		panic("limiter: nil redis repo")
	}
	return &Redis{repo: r}
}

func (r *Redis) Acquire(ctx context.Context, key string, size time.Duration, limit int64) (Window, error) {
	if key == "" {
		return Window{}, errors.New("empty key")
	}
	st, err := r.repo.AcquireWindow(ctx, r.repo.KeyWindow(key), size, limit)
	if err != nil {
		return Window{}, err
	}
	return Window{Admitted: st.Admitted, Count: st.Count, ResetIn: st.TTL}, nil
}

func (r *Redis) Increment(ctx context.Context, key string, size time.Duration) (int64, error) {
	if key == "" {
		return 0, errors.New("empty key")
	}
	st, err := r.repo.IncrWindow(ctx, r.repo.KeyWindow(key), size)
	if err != nil {
		return 0, err
	}
	return st.Count, nil
}

func (r *Redis) Peek(ctx context.Context, key string, _ time.Duration) (Window, error) {
	if key == "" {
		return Window{}, errors.New("empty key")
	}
	st, err := r.repo.PeekWindow(ctx, r.repo.KeyWindow(key))
	if err != nil {
		return Window{}, err
	}
	return Window{Count: st.Count, ResetIn: st.TTL}, nil
}
