package router

import (
	"sort"
)

// RouteSnapshot is an immutable rule index. Rules holds one entry per
// identity; ByMethod lists the same entries per method, most specific first.
type RouteSnapshot struct {
	Rules    map[string]Rule
	ByMethod map[string][]Rule
}

// BuildRouteSnapshot indexes rules keyed by identity.
func BuildRouteSnapshot(rules map[string]Rule) *RouteSnapshot {
	snap := &RouteSnapshot{
		Rules:    rules,
		ByMethod: make(map[string][]Rule),
	}
	for _, r := range rules {
		snap.ByMethod[r.Method] = append(snap.ByMethod[r.Method], r)
	}
	for _, list := range snap.ByMethod {
		sort.Slice(list, func(i, j int) bool {
			return moreSpecific(list[i].pattern, list[j].pattern)
		})
	}
	return snap
}

func (s *RouteSnapshot) resolve(method, path string) (Rule, bool) {
	for _, r := range s.ByMethod[method] {
		if r.pattern.Match(path) {
			return r, true
		}
	}
	return Rule{}, false
}

func (s *RouteSnapshot) with(r Rule) *RouteSnapshot {
	next := make(map[string]Rule, len(s.Rules)+1)
	for k, v := range s.Rules {
		next[k] = v
	}
	next[r.Key()] = r
	return BuildRouteSnapshot(next)
}

func (s *RouteSnapshot) without(key string) *RouteSnapshot {
	next := make(map[string]Rule, len(s.Rules))
	for k, v := range s.Rules {
		if k != key {
			next[k] = v
		}
	}
	return BuildRouteSnapshot(next)
}
