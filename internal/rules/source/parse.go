package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

import (
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
)

var errNoRulesList = errors.New(`document must be a list of rules or an object with a "rules" list`)

// ParseRules decodes a rule document in JSON or YAML. The document is either
// a list of rules or an object whose "rules" field holds the list. With an
// empty format, documents starting with '[' or '{' are read as JSON, falling
// back to YAML flow style, and everything else as YAML. Every rule is
// validated and all problems are reported together.
func ParseRules(raw []byte, format string) ([]config.Rule, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty rules payload")
	}

	format = strings.ToLower(strings.TrimSpace(format))
	auto := format == ""
	if auto {
		format = "yaml"
		if trimmed[0] == '[' || trimmed[0] == '{' {
			format = "json"
		}
	}

	var (
		list []config.Rule
		err  error
	)
	switch format {
	case "json":
		list, err = decodeJSON(trimmed)
		if err != nil && auto {
			if flow, yerr := decodeYAML(trimmed); yerr == nil {
				list, err = flow, nil
			}
		}
	case "yaml":
		list, err = decodeYAML(trimmed)
	default:
		return nil, fmt.Errorf("unsupported rules format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s rules: %w", format, err)
	}
	if err := validateAll(list); err != nil {
		return nil, err
	}
	return list, nil
}

// FormatFor guesses the format from a file name or URL path.
func FormatFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return "json"
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return "yaml"
	default:
		return ""
	}
}

func decodeJSON(raw []byte) ([]config.Rule, error) {
	switch raw[0] {
	case '[':
		var list []config.Rule
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("rule list: %w", err)
		}
		return list, nil
	case '{':
		var doc struct {
			Rules *[]config.Rule `json:"rules"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("rules object: %w", err)
		}
		if doc.Rules == nil {
			return nil, errNoRulesList
		}
		return *doc.Rules, nil
	default:
		return nil, errNoRulesList
	}
}

func decodeYAML(raw []byte) ([]config.Rule, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errNoRulesList
	}
	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var list []config.Rule
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("rule list: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value != "rules" {
				continue
			}
			var list []config.Rule
			if err := node.Content[i+1].Decode(&list); err != nil {
				return nil, fmt.Errorf("rules object: %w", err)
			}
			return list, nil
		}
		return nil, errNoRulesList
	default:
		return nil, errNoRulesList
	}
}

func validateAll(list []config.Rule) error {
	var errs error
	for i, r := range list {
		if err := r.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rule %d (%s %s): %w", i, r.Method, r.Path, err))
		}
	}
	return errs
}
