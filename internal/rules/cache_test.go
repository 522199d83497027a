package rules

import (
	"sync"
	"testing"
	"time"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/router"
)

func TestCacheBootstrapRegistersLocalRules(t *testing.T) {
	reg := router.NewRegistry()
	cache := NewCache(reg, config.DefaultRules(), nil)
	if err := cache.Bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", reg.Len())
	}
	rule, ok := reg.Resolve("POST", "/users/abc/meetings")
	if !ok || rule.Window != 24*time.Hour || rule.Limit != 100 {
		t.Fatalf("unexpected rule: %v %v", rule, ok)
	}
}

func TestCacheLocalRulesWinOverRemote(t *testing.T) {
	reg := router.NewRegistry()
	cache := NewCache(reg, []config.Rule{meetingRule(5)}, nil)

	err := cache.ReplaceAll(RuleSet{Version: "v1", Rules: []config.Rule{
		meetingRule(50),
		{Method: "DELETE", Path: "/meetings/{meetingId}", WindowMs: 1000, Limit: 7},
	}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", reg.Len())
	}
	if rule, _ := reg.Resolve("GET", "/meetings/1"); rule.Limit != 5 {
		t.Fatalf("local rule must win, limit = %d", rule.Limit)
	}

	// a later remote set without DELETE drops it
	if err := cache.ReplaceAll(RuleSet{Version: "v2"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, ok := reg.Resolve("DELETE", "/meetings/1"); ok {
		t.Fatalf("remote rule should be gone")
	}
	if cache.GetSnapshot().Version != "v2" {
		t.Fatalf("version = %q", cache.GetSnapshot().Version)
	}
}

func TestCacheUpsert(t *testing.T) {
	reg := router.NewRegistry()
	cache := NewCache(reg, nil, nil)

	if err := cache.Upsert(config.Rule{Method: "GET", Path: "/x", WindowMs: 0, Limit: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := cache.Upsert(meetingRule(4)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := cache.Upsert(meetingRule(8)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("same identity must overwrite, got %d rules", reg.Len())
	}

	// upserted rules survive a remote reload
	if err := cache.ReplaceAll(RuleSet{Version: "v1", Rules: []config.Rule{meetingRule(1)}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if rule, _ := reg.Resolve("GET", "/meetings/1"); rule.Limit != 8 {
		t.Fatalf("limit = %d", rule.Limit)
	}
	if got := len(cache.Local()); got != 1 {
		t.Fatalf("local = %d", got)
	}
}

func TestCacheRepeatedUpsertKeepsOneLocalRule(t *testing.T) {
	reg := router.NewRegistry()
	cache := NewCache(reg, nil, nil)
	for i := int64(1); i <= 1000; i++ {
		if err := cache.Upsert(meetingRule(i)); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	local := cache.Local()
	if len(local) != 1 || reg.Len() != 1 {
		t.Fatalf("local = %d, registry = %d", len(local), reg.Len())
	}
	if local[0].Limit != 1000 {
		t.Fatalf("kept limit %d, want the last upsert", local[0].Limit)
	}
}

func TestRuleConversionRoundTrip(t *testing.T) {
	in := config.Rule{Method: "PATCH", Path: "/meetings/:meetingId", WindowMs: 86400000, Limit: 100}
	r := ToRouter(in)
	if r.Window != 24*time.Hour || r.Template != in.Path {
		t.Fatalf("unexpected router rule: %v", r)
	}
	if out := FromRouter(r); out != in {
		t.Fatalf("round trip: %#v", out)
	}
}

func TestCacheConcurrentReadWrite(t *testing.T) {
	reg := router.NewRegistry()
	cache := NewCache(reg, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = cache.GetSnapshot()
				_, _ = reg.Resolve("GET", "/meetings/1")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = cache.ReplaceAll(RuleSet{Rules: []config.Rule{meetingRule(int64(id + 1))}})
			}
		}(i)
	}
	wg.Wait()

	if reg.Len() != 1 {
		t.Fatalf("expected 1 rule, got %d", reg.Len())
	}
}

func BenchmarkCacheResolve(b *testing.B) {
	reg := router.NewRegistry()
	cache := NewCache(reg, config.DefaultRules(), nil)
	if err := cache.Bootstrap(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := reg.Resolve("PATCH", "/meetings/123"); !ok {
				b.Error("rule not found")
			}
		}
	})
}

func TestMergeRule(t *testing.T) {
	set := []config.Rule{
		meetingRule(10),
		{Method: "DELETE", Path: "/meetings/:meetingId", WindowMs: 1000, Limit: 1},
	}
	out, err := MergeRule(set, config.Rule{Method: "get", Path: "/meetings/{id}", WindowMs: 500, Limit: 2})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(out) != 2 || out[1].Limit != 2 || out[0].Method != "DELETE" {
		t.Fatalf("unexpected merge: %#v", out)
	}
	if len(set) != 2 || set[0].Limit != 10 {
		t.Fatalf("input must not change")
	}
	if _, err := MergeRule(set, config.Rule{Method: "GET", Path: "/a/{", WindowMs: 1, Limit: 1}); err == nil {
		t.Fatalf("expected template error")
	}
}
