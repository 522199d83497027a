package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

import (
	"go.uber.org/multierr"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/rcu"
)

var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// Rule limits how many requests matching Method and Template are admitted
// per Window.
type Rule struct {
	Method   string
	Template string
	Window   time.Duration
	Limit    int64

	pattern *Pattern
}

// Key is the rule identity: method plus normalized path shape.
func (r Rule) Key() string {
	if r.pattern == nil {
		return r.Method + " " + r.Template
	}
	return r.Method + " " + r.pattern.Key()
}

// Pattern returns the compiled matcher, nil for an unregistered rule.
func (r Rule) Pattern() *Pattern {
	return r.pattern
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s (%d per %s)", r.Method, r.Template, r.Limit, r.Window)
}

// Registry stores throttle rules and resolves requests to them. Resolve is
// lock-free; registration publishes a new snapshot.
type Registry struct {
	snap *rcu.Snapshot[RouteSnapshot]
}

func NewRegistry() *Registry {
	return &Registry{snap: rcu.NewSnapshot(BuildRouteSnapshot(map[string]Rule{}))}
}

// AddRule compiles and registers rule, replacing any rule with the same
// identity.
func (r *Registry) AddRule(rule Rule) error {
	compiled, err := compileRule(rule)
	if err != nil {
		return err
	}
	r.snap.Update(func(cur *RouteSnapshot) *RouteSnapshot {
		return cur.with(compiled)
	})
	return nil
}

// Replace swaps the whole rule set in one step. Nothing changes when any
// rule is invalid; every invalid rule is reported.
func (r *Registry) Replace(rules []Rule) error {
	next := make(map[string]Rule, len(rules))
	var errs error
	for _, rule := range rules {
		compiled, err := compileRule(rule)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		next[compiled.Key()] = compiled
	}
	if errs != nil {
		return errs
	}
	r.snap.Replace(BuildRouteSnapshot(next))
	return nil
}

// Lookup returns the rule registered with the identity of method and
// template. Unlike Resolve it does not match a concrete path.
func (r *Registry) Lookup(method, template string) (Rule, bool) {
	key, ok := identityOf(method, template)
	if !ok {
		return Rule{}, false
	}
	rule, ok := r.snap.Load().Rules[key]
	return rule, ok
}

// Remove drops the rule registered for method and template.
func (r *Registry) Remove(method, template string) bool {
	key, ok := identityOf(method, template)
	if !ok {
		return false
	}
	removed := false
	r.snap.Update(func(cur *RouteSnapshot) *RouteSnapshot {
		if _, ok := cur.Rules[key]; !ok {
			removed = false
			return cur
		}
		removed = true
		return cur.without(key)
	})
	return removed
}

// Resolve returns the most specific rule matching method and path.
func (r *Registry) Resolve(method, path string) (Rule, bool) {
	return r.snap.Load().resolve(normalizeMethod(method), path)
}

// Rules lists registered rules ordered by identity.
func (r *Registry) Rules() []Rule {
	cur := r.snap.Load()
	out := make([]Rule, 0, len(cur.Rules))
	for _, rule := range cur.Rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (r *Registry) Len() int {
	return len(r.snap.Load().Rules)
}

func compileRule(rule Rule) (Rule, error) {
	rule.Method = normalizeMethod(rule.Method)
	if _, ok := knownMethods[rule.Method]; !ok {
		return Rule{}, &apierr.RuleError{Method: rule.Method, Template: rule.Template, Reason: "unsupported method"}
	}
	if rule.Window <= 0 {
		return Rule{}, &apierr.RuleError{Method: rule.Method, Template: rule.Template, Reason: "window must be positive"}
	}
	if rule.Limit <= 0 {
		return Rule{}, &apierr.RuleError{Method: rule.Method, Template: rule.Template, Reason: "limit must be positive"}
	}
	p, err := Compile(rule.Method, rule.Template)
	if err != nil {
		return Rule{}, err
	}
	rule.Template = p.Template()
	rule.pattern = p
	return rule, nil
}

func identityOf(method, template string) (string, bool) {
	m := normalizeMethod(method)
	p, err := Compile(m, template)
	if err != nil {
		return "", false
	}
	return m + " " + p.Key(), true
}

func normalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
