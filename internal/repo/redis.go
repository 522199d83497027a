package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
)

const keyWindowTmpl = "%s:win:{%s}"

// WindowState is the stored state of one fixed window.
type WindowState struct {
	Admitted bool
	Count    int64
	TTL      time.Duration
}

// Repo is the storage surface used by the shared window counter.
type Repo interface {
	KeyWindow(ruleKey string) string
	AcquireWindow(ctx context.Context, key string, window time.Duration, limit int64) (WindowState, error)
	IncrWindow(ctx context.Context, key string, window time.Duration) (WindowState, error)
	PeekWindow(ctx context.Context, key string) (WindowState, error)
	Close() error
}

type RedisRepo struct {
	Prefix         string
	Cli            redis.UniversalClient
	logger         *zap.Logger
	defaultTimeout time.Duration
}

var _ Repo = (*RedisRepo)(nil)

type Option func(*RedisRepo)

func WithDefaultTimeout(d time.Duration) Option {
	return func(r *RedisRepo) { r.defaultTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *RedisRepo) { r.logger = l }
}

// WithClient skips dialing and uses cli as is.
func WithClient(cli redis.UniversalClient) Option {
	return func(r *RedisRepo) { r.Cli = cli }
}

// NewRedis connects to a single node or a cluster, depending on how many
// addresses are configured, and pings it.
func NewRedis(ctx context.Context, cfg config.RedisCfg, opts ...Option) (*RedisRepo, error) {
	r := &RedisRepo{
		Prefix:         cfg.Prefix,
		logger:         zap.NewNop(),
		defaultTimeout: durationOrDefault(cfg.OpTimeoutMs, 100),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.Cli == nil {
		addrs := normalizeAddrs(cfg)
		if len(addrs) == 0 {
			return nil, errors.New("no redis addresses configured")
		}
		r.Cli = redis.NewUniversalClient(buildUniversalOptions(cfg, addrs))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Cli.Ping(pingCtx).Err(); err != nil {
		r.logger.Error("redis ping failed", zap.Error(err))
		_ = r.Cli.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}
	return r, nil
}

func (r *RedisRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.defaultTimeout)
}

func (r *RedisRepo) KeyWindow(ruleKey string) string {
	return fmt.Sprintf(keyWindowTmpl, r.Prefix, ruleKey)
}

// AcquireWindow runs the check-and-increment script for one window.
func (r *RedisRepo) AcquireWindow(parentCtx context.Context, key string, window time.Duration, limit int64) (WindowState, error) {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()
	res, err := scriptAcquire.Run(ctx, r.Cli, []string{key}, windowMs(window), limit).Int64Slice()
	if err != nil {
		return WindowState{}, fmt.Errorf("acquire window %s: %w", key, err)
	}
	if len(res) < 3 {
		return WindowState{}, fmt.Errorf("acquire window %s: short script reply %v", key, res)
	}
	return WindowState{
		Admitted: res[0] == 1,
		Count:    res[1],
		TTL:      time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// IncrWindow counts one request without a capacity check.
func (r *RedisRepo) IncrWindow(parentCtx context.Context, key string, window time.Duration) (WindowState, error) {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()
	res, err := scriptIncr.Run(ctx, r.Cli, []string{key}, windowMs(window)).Int64Slice()
	if err != nil {
		return WindowState{}, fmt.Errorf("incr window %s: %w", key, err)
	}
	if len(res) < 2 {
		return WindowState{}, fmt.Errorf("incr window %s: short script reply %v", key, res)
	}
	return WindowState{Admitted: true, Count: res[0], TTL: time.Duration(res[1]) * time.Millisecond}, nil
}

// PeekWindow reads a window without modifying it. A missing key is an empty
// window.
func (r *RedisRepo) PeekWindow(parentCtx context.Context, key string) (WindowState, error) {
	ctx, cancel := r.withTimeout(parentCtx)
	defer cancel()

	pipe := r.Cli.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return WindowState{}, fmt.Errorf("peek window %s: %w", key, err)
	}

	count, err := getCmd.Int64()
	if errors.Is(err, redis.Nil) {
		return WindowState{}, nil
	}
	if err != nil {
		return WindowState{}, fmt.Errorf("peek window %s: %w", key, err)
	}
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return WindowState{Count: count, TTL: ttl}, nil
}

func (r *RedisRepo) Close() error {
	return r.Cli.Close()
}

func windowMs(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return ms
}

func normalizeAddrs(cfg config.RedisCfg) []string {
	if len(cfg.Addrs) > 0 {
		return cfg.Addrs
	}
	if cfg.Addr == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(cfg.Addr, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func buildUniversalOptions(cfg config.RedisCfg, addrs []string) *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     atLeast(cfg.PoolSize, 10),
		MinIdleConns: atLeast(cfg.MinIdleConns, 2),
		MaxRetries:   atLeast(cfg.MaxRetries, 2),
		DialTimeout:  durationOrDefault(cfg.DialTimeoutMs, 800),
		ReadTimeout:  durationOrDefault(cfg.ReadTimeoutMs, 800),
		WriteTimeout: durationOrDefault(cfg.WriteTimeoutMs, 800),
	}
}

func atLeast(val, def int) int {
	if val > def {
		return val
	}
	return def
}

func durationOrDefault(ms int, defMs int) time.Duration {
	if ms <= 0 {
		ms = defMs
	}
	return time.Duration(ms) * time.Millisecond
}
