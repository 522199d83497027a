package router

import (
	"strings"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
)

// Pattern is a compiled path template. Literal segments must match exactly,
// placeholder segments (":id" or "{id}") match any single non-empty segment.
type Pattern struct {
	template string
	segments []segment
	literals int
	key      string
}

type segment struct {
	literal string
	param   string
}

func (s segment) isParam() bool {
	return s.param != ""
}

// Compile turns a template such as "/users/:userId/meetings" into a Pattern.
func Compile(method, template string) (*Pattern, error) {
	fail := func(reason string) (*Pattern, error) {
		return nil, &apierr.RuleError{Method: method, Template: template, Reason: reason}
	}

	t := strings.TrimSpace(template)
	if t == "" {
		return fail("empty template")
	}
	if !strings.HasPrefix(t, "/") {
		return fail("template must start with '/'")
	}
	if strings.ContainsAny(t, "?#") {
		return fail("template must not carry a query or fragment")
	}

	p := &Pattern{template: t}
	trimmed := strings.Trim(t, "/")
	if trimmed == "" {
		p.key = "/"
		return p, nil
	}

	keyParts := make([]string, 0, strings.Count(trimmed, "/")+1)
	for _, raw := range strings.Split(trimmed, "/") {
		seg, reason := parseSegment(raw)
		if reason != "" {
			return fail(reason)
		}
		p.segments = append(p.segments, seg)
		if seg.isParam() {
			keyParts = append(keyParts, ":")
		} else {
			p.literals++
			keyParts = append(keyParts, seg.literal)
		}
	}
	p.key = "/" + strings.Join(keyParts, "/")
	return p, nil
}

func parseSegment(raw string) (segment, string) {
	if raw == "" {
		return segment{}, "empty path segment"
	}

	open := strings.Count(raw, "{")
	closing := strings.Count(raw, "}")
	switch {
	case open == 0 && closing == 0:
	case open != closing:
		return segment{}, "unmatched placeholder delimiter in " + raw
	case open > 1 || !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}"):
		return segment{}, "placeholder must span the whole segment: " + raw
	default:
		name := raw[1 : len(raw)-1]
		if name == "" || strings.Contains(name, ":") {
			return segment{}, "invalid placeholder name in " + raw
		}
		return segment{param: name}, ""
	}

	if strings.HasPrefix(raw, ":") {
		name := raw[1:]
		if name == "" || strings.Contains(name, ":") {
			return segment{}, "invalid placeholder name in " + raw
		}
		return segment{param: name}, ""
	}
	return segment{literal: raw}, ""
}

// Template returns the source template.
func (p *Pattern) Template() string {
	return p.template
}

// Key is the normalized literal+placeholder shape. Templates that differ only
// in placeholder names share a key.
func (p *Pattern) Key() string {
	return p.key
}

func (p *Pattern) Literals() int {
	return p.literals
}

func (p *Pattern) Placeholders() int {
	return len(p.segments) - p.literals
}

// Match reports whether a concrete request path fits the pattern. Query
// string, fragment and a trailing slash are ignored.
func (p *Pattern) Match(path string) bool {
	_, ok := p.Params(path)
	return ok
}

// Params matches path and returns the placeholder values.
func (p *Pattern) Params(path string) (map[string]string, bool) {
	parts, ok := splitPath(path)
	if !ok || len(parts) != len(p.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range p.segments {
		part := parts[i]
		if part == "" {
			return nil, false
		}
		if !seg.isParam() {
			if part != seg.literal {
				return nil, false
			}
			continue
		}
		if params == nil {
			params = make(map[string]string, p.Placeholders())
		}
		params[seg.param] = part
	}
	return params, true
}

func splitPath(path string) ([]string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	trimmed := strings.TrimSuffix(path[1:], "/")
	if trimmed == "" {
		return nil, true
	}
	return strings.Split(trimmed, "/"), true
}

// moreSpecific orders patterns for resolution: more literal segments first,
// then fewer placeholders, then the earliest literal, then by key.
func moreSpecific(a, b *Pattern) bool {
	if a.literals != b.literals {
		return a.literals > b.literals
	}
	if a.Placeholders() != b.Placeholders() {
		return a.Placeholders() < b.Placeholders()
	}
	n := min(len(a.segments), len(b.segments))
	for i := 0; i < n; i++ {
		al, bl := !a.segments[i].isParam(), !b.segments[i].isParam()
		if al != bl {
			return al
		}
	}
	return a.key < b.key
}
