package rules

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

import (
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/rcu"
	"github.com/nanjiek/meetingkit/internal/router"
)

// RuleSet is an immutable set of rules fetched from a source.
type RuleSet struct {
	Rules   []config.Rule
	Version string
}

// Cache owns the rules applied to a registry. Local rules (configuration and
// runtime additions) are layered over the rules of the current source set,
// so a local rule wins over a source rule with the same identity.
type Cache struct {
	registry *router.Registry
	remote   *rcu.Snapshot[RuleSet]
	logger   *zap.Logger

	mu    sync.Mutex
	local []config.Rule
}

func NewCache(registry *router.Registry, local []config.Rule, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		registry: registry,
		remote:   rcu.NewSnapshot(&RuleSet{}),
		logger:   logger,
		local:    append([]config.Rule(nil), local...),
	}
}

// Bootstrap registers the local rules.
func (c *Cache) Bootstrap() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(c.remote.Load().Rules)
}

// ReplaceAll swaps the source rule set. The registry keeps its previous
// rules when any rule in set is invalid.
func (c *Cache) ReplaceAll(set RuleSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.applyLocked(set.Rules); err != nil {
		return err
	}
	next := RuleSet{Rules: append([]config.Rule(nil), set.Rules...), Version: set.Version}
	c.remote.Replace(&next)
	c.logger.Info("reloaded rules",
		zap.String("version", set.Version),
		zap.Int("remote", len(set.Rules)),
		zap.Int("total", c.registry.Len()))
	return nil
}

// Upsert registers a local rule, overwriting one with the same identity.
func (c *Cache) Upsert(r config.Rule) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("rule %s %s: %w", r.Method, r.Path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.registry.AddRule(ToRouter(r)); err != nil {
		return err
	}
	local, err := MergeRule(c.local, r)
	if err != nil {
		return err
	}
	c.local = local
	return nil
}

// GetSnapshot returns the current source rule set.
func (c *Cache) GetSnapshot() *RuleSet {
	return c.remote.Load()
}

// Local returns a copy of the local rules in registration order.
func (c *Cache) Local() []config.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]config.Rule(nil), c.local...)
}

func (c *Cache) applyLocked(remote []config.Rule) error {
	merged := make([]router.Rule, 0, len(remote)+len(c.local))
	for _, r := range remote {
		merged = append(merged, ToRouter(r))
	}
	for _, r := range c.local {
		merged = append(merged, ToRouter(r))
	}
	return c.registry.Replace(merged)
}

// ToRouter converts a configured rule into a registry rule.
func ToRouter(r config.Rule) router.Rule {
	return router.Rule{
		Method:   r.Method,
		Template: r.Path,
		Window:   time.Duration(r.WindowMs) * time.Millisecond,
		Limit:    r.Limit,
	}
}

// FromRouter is the inverse of ToRouter.
func FromRouter(r router.Rule) config.Rule {
	return config.Rule{
		Method:   r.Method,
		Path:     r.Template,
		WindowMs: r.Window.Milliseconds(),
		Limit:    r.Limit,
	}
}

// MergeRule returns a copy of set with r added, replacing any rule with the
// same identity.
func MergeRule(set []config.Rule, r config.Rule) ([]config.Rule, error) {
	key, err := identity(r)
	if err != nil {
		return nil, err
	}
	out := make([]config.Rule, 0, len(set)+1)
	for _, cur := range set {
		if k, err := identity(cur); err == nil && k == key {
			continue
		}
		out = append(out, cur)
	}
	return append(out, r), nil
}

func identity(r config.Rule) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("rule %s %s: %w", r.Method, r.Path, err)
	}
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	p, err := router.Compile(method, r.Path)
	if err != nil {
		return "", err
	}
	return method + " " + p.Key(), nil
}
