package source

import (
	"context"
	"encoding/json"
	"fmt"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
)

// RuleStore is the shared rule document store, see repo.RedisRepo.
type RuleStore interface {
	LoadRules(ctx context.Context) ([]byte, error)
	UpdateRules(ctx context.Context, fn func(current []byte) ([]byte, error)) ([]byte, error)
	WatchRules(ctx context.Context) <-chan struct{}
}

// RedisSource reads rules shared by every meetingkit process through
// redis. Publish writes them.
type RedisSource struct {
	store RuleStore
}

var _ Notifier = (*RedisSource)(nil)

func NewRedisSource(store RuleStore) *RedisSource {
	return &RedisSource{store: store}
}

// Fetch returns an empty rule set when nothing has been published yet.
func (s *RedisSource) Fetch(ctx context.Context) (RulesPayload, error) {
	doc, err := s.store.LoadRules(ctx)
	if err != nil {
		return RulesPayload{}, err
	}
	if len(doc) == 0 {
		return RulesPayload{Rules: []config.Rule{}, Version: "empty"}, nil
	}
	rules, err := ParseRules(doc, "json")
	if err != nil {
		return RulesPayload{}, err
	}
	return RulesPayload{Rules: rules, Version: digest(doc)}, nil
}

// Publish stores rules as the shared document, replacing whatever is there.
func (s *RedisSource) Publish(ctx context.Context, rules []config.Rule) error {
	_, err := s.Update(ctx, func([]config.Rule) ([]config.Rule, error) { return rules, nil })
	return err
}

// Update derives the shared rules from the currently stored ones. The store
// reruns fn if another writer got in between, so fn must not have side
// effects.
func (s *RedisSource) Update(ctx context.Context, fn func(current []config.Rule) ([]config.Rule, error)) (RulesPayload, error) {
	doc, err := s.store.UpdateRules(ctx, func(cur []byte) ([]byte, error) {
		var current []config.Rule
		if len(cur) > 0 {
			parsed, err := ParseRules(cur, "json")
			if err != nil {
				return nil, fmt.Errorf("stored rules: %w", err)
			}
			current = parsed
		}
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []config.Rule{}
		}
		return json.Marshal(next)
	})
	if err != nil {
		return RulesPayload{}, err
	}
	rules, err := ParseRules(doc, "json")
	if err != nil {
		return RulesPayload{}, err
	}
	return RulesPayload{Rules: rules, Version: digest(doc)}, nil
}

func (s *RedisSource) Changes(ctx context.Context) <-chan struct{} {
	return s.store.WatchRules(ctx)
}
