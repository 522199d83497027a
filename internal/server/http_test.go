package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tilinna/clock"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/core"
	"github.com/nanjiek/meetingkit/internal/limiter"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/rules"
	"github.com/nanjiek/meetingkit/internal/rules/source"
)

// fakePublisher keeps the shared rules in memory. raced, when set, is
// written by another process before the first update lands.
type fakePublisher struct {
	shared    []config.Rule
	published [][]config.Rule
	raced     []config.Rule
	err       error
}

func (f *fakePublisher) Update(_ context.Context, fn func([]config.Rule) ([]config.Rule, error)) (source.RulesPayload, error) {
	if f.err != nil {
		return source.RulesPayload{}, f.err
	}
	next, err := fn(f.shared)
	if err != nil {
		return source.RulesPayload{}, err
	}
	if f.raced != nil {
		f.shared, f.raced = f.raced, nil
		if next, err = fn(f.shared); err != nil {
			return source.RulesPayload{}, err
		}
	}
	f.shared = next
	f.published = append(f.published, next)
	return source.RulesPayload{Rules: next, Version: fmt.Sprintf("v%d", len(f.published))}, nil
}

type fixture struct {
	server   *Server
	governor *core.Governor
	cache    *rules.Cache
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	reg := router.NewRegistry()
	cache := rules.NewCache(reg, []config.Rule{
		{Method: "GET", Path: "/meetings/:meetingId", WindowMs: 1000, Limit: 2},
	}, nil)
	require.NoError(t, cache.Bootstrap())
	mc := clock.NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	gov := core.NewGovernor(reg, limiter.NewMemory(limiter.WithClock(mc)), config.FailClosed)
	return fixture{
		server:   NewServer(config.AdminCfg{HTTPAddr: "127.0.0.1:0"}, cache, gov, opts...),
		governor: gov,
		cache:    cache,
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListRules(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.server.Handler(), http.MethodGet, "/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rules, 1)
	assert.Equal(t, "GET /meetings/:", resp.Rules[0].Key)
	assert.Equal(t, int64(1000), resp.Rules[0].WindowMs)
}

func TestCreateRuleLocal(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	rec := do(t, h, http.MethodPost, "/v1/rules", `{"method":"post","path":"/users/{userId}/meetings","windowMs":86400000,"limit":100}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created RuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "POST /users/:/meetings", created.Key)
	assert.Equal(t, "POST", created.Method)
	assert.Equal(t, 2, f.governor.Registry().Len())

	rec = do(t, h, http.MethodPost, "/v1/rules", `{"method":"GET","path":"meetings","windowMs":1,"limit":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/rules", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRulePublishes(t *testing.T) {
	pub := &fakePublisher{}
	f := newFixture(t, WithPublisher(pub))

	rec := do(t, f.server.Handler(), http.MethodPost, "/v1/rules", `{"method":"DELETE","path":"/meetings/:meetingId","windowMs":1000,"limit":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, pub.published, 1)
	assert.Equal(t, "DELETE", pub.published[0][0].Method)
	assert.Len(t, f.cache.GetSnapshot().Rules, 1)
	_, ok := f.governor.Registry().Resolve("DELETE", "/meetings/9")
	assert.True(t, ok)

	pub.err = errors.New("redis down")
	rec = do(t, f.server.Handler(), http.MethodPost, "/v1/rules", `{"method":"PUT","path":"/meetings/:meetingId","windowMs":1000,"limit":5}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	_, ok = f.governor.Registry().Resolve("PUT", "/meetings/9")
	assert.False(t, ok)
}

func TestCreateRulePublishKeepsConcurrentWrites(t *testing.T) {
	other := config.Rule{Method: "PUT", Path: "/meetings/:meetingId", WindowMs: 1000, Limit: 7}
	pub := &fakePublisher{raced: []config.Rule{other}}
	f := newFixture(t, WithPublisher(pub))

	rec := do(t, f.server.Handler(), http.MethodPost, "/v1/rules", `{"method":"DELETE","path":"/meetings/:meetingId","windowMs":1000,"limit":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, pub.shared, 2)
	assert.Equal(t, other, pub.shared[0])
	assert.Equal(t, "DELETE", pub.shared[1].Method)

	snap := f.cache.GetSnapshot()
	assert.Equal(t, "v1", snap.Version)
	_, ok := f.governor.Registry().Resolve("PUT", "/meetings/9")
	assert.True(t, ok, "the rule written by the other process is applied too")

	rec = do(t, f.server.Handler(), http.MethodPost, "/v1/rules", `{"method":"GET","path":"meetings","windowMs":1,"limit":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, pub.published, 1, "invalid rules are never published")
}

func TestPeek(t *testing.T) {
	f := newFixture(t)
	_, err := f.governor.Admit(context.Background(), "GET", "/meetings/1")
	require.NoError(t, err)

	h := f.server.Handler()
	rec := do(t, h, http.MethodGet, "/v1/rules/peek?method=GET&path=/meetings/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PeekResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Count)
	assert.Equal(t, int64(1), resp.Remaining)
	assert.Equal(t, int64(1000), resp.ResetInMs)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/rules/peek?method=GET&path=/users/1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/rules/peek?method=GET", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "meetingkit_test_total", Help: "test"}))
	f := newFixture(t, WithGatherer(reg))
	h := f.server.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meetingkit_test_total")
}

func TestRunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.server.Run(ctx, func(ctx context.Context) error {
			close(ran)
			<-ctx.Done()
			return nil
		})
	}()

	<-ran
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
