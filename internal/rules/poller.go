package rules

import (
	"context"
	"strings"
	"sync"
	"time"
)

import (
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/rules/source"
)

// PollerConfig controls the pull loop behavior.
type PollerConfig struct {
	Interval time.Duration
	// FailPolicy decides what a failed first sync means: fail-closed makes
	// Start return the error, fail-open carries on with the local rules.
	// Later failures always keep the last applied rules.
	FailPolicy string
}

// Poller periodically pulls rules from a source into a Cache. Sources that
// implement source.Notifier trigger a pull as soon as they signal.
type Poller struct {
	source     source.RuleSource
	cache      *Cache
	interval   time.Duration
	failPolicy string
	lastVer    string
	log        *zap.Logger
	mu         sync.Mutex
}

func NewPoller(src source.RuleSource, cache *Cache, cfg PollerConfig, logger *zap.Logger) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := strings.ToLower(strings.TrimSpace(cfg.FailPolicy))
	if policy != config.FailOpen {
		policy = config.FailClosed
	}
	return &Poller{
		source:     src,
		cache:      cache,
		interval:   interval,
		failPolicy: policy,
		log:        logger.Named("rules"),
	}
}

// SyncOnce pulls rules once and applies them. It reports whether the rule
// set changed.
func (p *Poller) SyncOnce(ctx context.Context) (bool, error) {
	return p.pull(ctx)
}

// Version is the version of the last applied rule set.
func (p *Poller) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVer
}

// Start syncs once, then keeps polling until ctx is done. It returns an
// error only when the first sync fails under fail-closed.
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.pull(ctx); err != nil {
		if p.failPolicy == config.FailClosed {
			return err
		}
		p.log.Warn("rules pull failed on startup, keeping local rules", zap.Error(err))
	}

	var changes <-chan struct{}
	if n, ok := p.source.(source.Notifier); ok {
		changes = n.Changes(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
		}
		if _, err := p.pull(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("rules pull failed, keeping last rules", zap.Error(err))
		}
	}
}

func (p *Poller) pull(ctx context.Context) (bool, error) {
	payload, err := p.source.Fetch(ctx)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if payload.Version != "" && payload.Version == p.lastVer {
		return false, nil
	}
	if len(payload.Rules) == 0 {
		p.log.Warn("rules payload contains no rules", zap.String("version", payload.Version))
	}

	if err := p.cache.ReplaceAll(RuleSet{Rules: payload.Rules, Version: payload.Version}); err != nil {
		return false, err
	}
	p.lastVer = payload.Version
	return true, nil
}
