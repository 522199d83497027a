package repo

import (
	"context"
	"errors"
	"fmt"
)

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyRulesTmpl     = "%s:rules"
	channelRulesTmpl = "%s:rules:update"

	maxRuleUpdateAttempts = 8
)

// ErrRulesContended is returned by UpdateRules when other writers changed the
// document on every attempt.
var ErrRulesContended = errors.New("rules document kept changing during update")

func (r *RedisRepo) KeyRules() string {
	return fmt.Sprintf(keyRulesTmpl, r.Prefix)
}

func (r *RedisRepo) RulesChannel() string {
	return fmt.Sprintf(channelRulesTmpl, r.Prefix)
}

// LoadRules returns the shared rule document, nil when none is stored.
func (r *RedisRepo) LoadRules(parentCtx context.Context) ([]byte, error) {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()

	doc, err := r.Cli.Get(ctx, r.KeyRules()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return doc, nil
}

// StoreRules replaces the shared rule document and tells every watcher.
func (r *RedisRepo) StoreRules(parentCtx context.Context, doc []byte) error {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()

	if err := r.Cli.Set(ctx, r.KeyRules(), doc, 0).Err(); err != nil {
		return fmt.Errorf("store rules: %w", err)
	}
	r.notifyRules(ctx)
	return nil
}

// UpdateRules rewrites the shared document with fn(current) under WATCH.
// When another process writes the document between the read and the write,
// fn runs again on the newer document. A nil current means none is stored.
func (r *RedisRepo) UpdateRules(parentCtx context.Context, fn func(current []byte) ([]byte, error)) ([]byte, error) {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()

	key := r.KeyRules()
	for attempt := 0; attempt < maxRuleUpdateAttempts; attempt++ {
		var next []byte
		err := r.Cli.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if next, err = fn(cur); err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("rules changed concurrently, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update rules: %w", err)
		}
		r.notifyRules(ctx)
		return next, nil
	}
	return nil, ErrRulesContended
}

func (r *RedisRepo) notifyRules(ctx context.Context) {
	if err := r.Cli.Publish(ctx, r.RulesChannel(), "updated").Err(); err != nil {
		r.logger.Warn("publish rules update failed", zap.Error(err))
	}
}

// WatchRules signals on the returned channel whenever StoreRules or
// UpdateRules runs in any process. Signals coalesce; the channel closes when ctx is done.
func (r *RedisRepo) WatchRules(ctx context.Context) <-chan struct{} {
	sub := r.Cli.Subscribe(ctx, r.RulesChannel())
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
