package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilinna/clock"
)

func TestMemoryAcquireRejectsOverLimit(t *testing.T) {
	ctx := context.Background()
	mc := clock.NewMock(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))
	m := NewMemory(WithClock(mc))

	for i := int64(1); i <= 3; i++ {
		w, err := m.Acquire(ctx, "k", time.Second, 3)
		require.NoError(t, err)
		assert.True(t, w.Admitted)
		assert.Equal(t, i, w.Count)
	}

	mc.Add(400 * time.Millisecond)
	w, err := m.Acquire(ctx, "k", time.Second, 3)
	require.NoError(t, err)
	assert.False(t, w.Admitted)
	assert.Equal(t, int64(3), w.Count)
	assert.Equal(t, 600*time.Millisecond, w.ResetIn)
}

func TestMemoryWindowResets(t *testing.T) {
	ctx := context.Background()
	mc := clock.NewMock(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))
	m := NewMemory(WithClock(mc))

	w, _ := m.Acquire(ctx, "k", time.Second, 1)
	require.True(t, w.Admitted)
	w, _ = m.Acquire(ctx, "k", time.Second, 1)
	require.False(t, w.Admitted)

	// exactly one window later counts as a fresh window
	mc.Add(time.Second)
	w, _ = m.Acquire(ctx, "k", time.Second, 1)
	assert.True(t, w.Admitted)
	assert.Equal(t, int64(1), w.Count)
	assert.Equal(t, time.Second, w.ResetIn)
}

func TestMemoryPeekDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	mc := clock.NewMock(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))
	m := NewMemory(WithClock(mc))

	w, err := m.Peek(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, Window{}, w)

	_, _ = m.Acquire(ctx, "k", time.Second, 5)
	_, _ = m.Acquire(ctx, "k", time.Second, 5)
	mc.Add(250 * time.Millisecond)

	for i := 0; i < 3; i++ {
		w, err = m.Peek(ctx, "k", time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(2), w.Count)
		assert.Equal(t, 750*time.Millisecond, w.ResetIn)
		assert.False(t, w.Admitted)
	}

	mc.Add(time.Second)
	w, _ = m.Peek(ctx, "k", time.Second)
	assert.Zero(t, w.Count)
}

func TestMemoryIncrement(t *testing.T) {
	ctx := context.Background()
	mc := clock.NewMock(time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))
	m := NewMemory(WithClock(mc))

	for i := int64(1); i <= 4; i++ {
		n, err := m.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	mc.Add(time.Minute)
	n, _ := m.Increment(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), n)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	w, _ := m.Acquire(ctx, "a", time.Minute, 1)
	require.True(t, w.Admitted)
	w, _ = m.Acquire(ctx, "a", time.Minute, 1)
	require.False(t, w.Admitted)

	w, _ = m.Acquire(ctx, "b", time.Minute, 1)
	assert.True(t, w.Admitted)
}

func TestMemoryConcurrentAcquireNeverOverAdmits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var allowed, rejected atomic.Int64
	var maxSeen atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := m.Acquire(ctx, "k", time.Minute, 10)
			if err != nil {
				t.Error(err)
				return
			}
			for {
				cur := maxSeen.Load()
				if w.Count <= cur || maxSeen.CompareAndSwap(cur, w.Count) {
					break
				}
			}
			if w.Admitted {
				allowed.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), allowed.Load())
	assert.Equal(t, int64(40), rejected.Load())
	assert.Equal(t, int64(10), maxSeen.Load())
}
