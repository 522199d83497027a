package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/limiter"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/types"
)

const (
	ReasonNoRule    = "no_rule"
	ReasonAllowed   = "allowed"
	ReasonExceeded  = "window_exceeded"
	ReasonFailOpen  = "fail_open"
	ReasonCountFail = "counter_failed"
)

// Governor decides whether a request may be sent now. It never sleeps: a
// request over capacity is rejected with the time left in its window.
type Governor struct {
	registry   *router.Registry
	counter    limiter.Counter
	failPolicy string
}

// NewGovernor builds a governor. failPolicy only matters for counters that
// can fail (the Redis one); anything other than "fail-open" fails closed.
func NewGovernor(registry *router.Registry, counter limiter.Counter, failPolicy string) *Governor {
	if registry == nil {
		panic("core: nil registry")
	}
	if counter == nil {
		panic("core: nil counter")
	}
	return &Governor{
		registry:   registry,
		counter:    counter,
		failPolicy: normalizeFailPolicy(failPolicy),
	}
}

func (g *Governor) Registry() *router.Registry {
	return g.registry
}

// Admit resolves the request's rule and counts it against the rule's window.
// Requests with no matching rule are always allowed.
func (g *Governor) Admit(ctx context.Context, method, path string) (types.Decision, error) {
	rule, ok := g.registry.Resolve(method, path)
	if !ok {
		return types.Decision{Kind: types.Allow, Reason: ReasonNoRule}, nil
	}
	key := rule.Key()

	w, err := g.counter.Acquire(ctx, key, rule.Window, rule.Limit)
	if err != nil {
		if g.failPolicy == config.FailOpen {
			return types.Decision{Kind: types.Allow, RuleKey: key, Reason: ReasonFailOpen}, nil
		}
		return types.Decision{Kind: types.Reject, RuleKey: key, Reason: ReasonCountFail},
			fmt.Errorf("count request for rule %q: %w", key, err)
	}

	if !w.Admitted {
		return types.Decision{
			Kind:       types.Reject,
			RuleKey:    key,
			Count:      w.Count,
			Remaining:  0,
			RetryAfter: w.ResetIn,
			Reason:     ReasonExceeded,
		}, nil
	}
	return types.Decision{
		Kind:      types.Allow,
		RuleKey:   key,
		Count:     w.Count,
		Remaining: rule.Limit - w.Count,
		Reason:    ReasonAllowed,
	}, nil
}

// Usage describes a rule's current window.
type Usage struct {
	Rule      router.Rule
	Count     int64
	Remaining int64
	ResetIn   int64 // milliseconds
}

var ErrNoRule = errors.New("no throttle rule matches")

// Peek reports the window a request would be counted in, without counting it.
func (g *Governor) Peek(ctx context.Context, method, path string) (Usage, error) {
	rule, ok := g.registry.Resolve(method, path)
	if !ok {
		return Usage{}, ErrNoRule
	}
	w, err := g.counter.Peek(ctx, rule.Key(), rule.Window)
	if err != nil {
		return Usage{}, err
	}
	remaining := rule.Limit - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Rule: rule, Count: w.Count, Remaining: remaining, ResetIn: w.ResetIn.Milliseconds()}, nil
}

func normalizeFailPolicy(policy string) string {
	policy = strings.ToLower(strings.TrimSpace(policy))
	if policy != config.FailOpen && policy != config.FailClosed {
		return config.FailClosed
	}
	return policy
}
