// Package server is the admin HTTP surface: rule listing and registration,
// window inspection, metrics and health.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/core"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/rules"
	"github.com/nanjiek/meetingkit/internal/rules/source"
)

// Publisher shares rules with every process, e.g. source.RedisSource.
// Update applies fn to the currently shared rules atomically, rerunning it
// when another writer raced ahead.
type Publisher interface {
	Update(ctx context.Context, fn func(current []config.Rule) ([]config.Rule, error)) (source.RulesPayload, error)
}

type Server struct {
	cfg       config.AdminCfg
	ruleCache *rules.Cache
	governor  *core.Governor
	publisher Publisher
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	srv       *http.Server
}

type Option func(*Server)

// WithPublisher makes POST /v1/rules publish the rule to every process
// instead of registering it locally.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(cfg config.AdminCfg, ruleCache *rules.Cache, governor *core.Governor, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		ruleCache: ruleCache,
		governor:  governor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("admin")
	s.srv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/rules", s.listRulesHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/rules", s.createRuleHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/rules/peek", s.peekHandler).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("admin server listening", zap.String("addr", s.cfg.HTTPAddr))
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down gracefully. Each background
// task runs alongside the server; the first error stops everything.
func (s *Server) Run(ctx context.Context, background ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	for _, task := range background {
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}

// ---------------- Handlers ----------------

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules": s.governor.Registry().Len()})
}

func (s *Server) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	registered := s.governor.Registry().Rules()
	resp := RulesResponse{
		Rules:   make([]RuleResponse, 0, len(registered)),
		Version: s.ruleCache.GetSnapshot().Version,
	}
	for _, rule := range registered {
		resp.Rules = append(resp.Rules, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rule := config.Rule{Method: req.Method, Path: req.Path, WindowMs: req.WindowMs, Limit: req.Limit}

	if s.publisher == nil {
		if err := s.ruleCache.Upsert(rule); err != nil {
			errResp(w, http.StatusBadRequest, "invalid rule: "+err.Error())
			return
		}
		s.logger.Info("rule registered", zap.String("method", rule.Method), zap.String("path", rule.Path))
		s.writeRegistered(w, rule)
		return
	}

	if _, err := rules.MergeRule(nil, rule); err != nil {
		errResp(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}
	shared, err := s.publisher.Update(r.Context(), func(current []config.Rule) ([]config.Rule, error) {
		return rules.MergeRule(current, rule)
	})
	if err != nil {
		s.logger.Warn("publish rules failed", zap.Error(err))
		errResp(w, http.StatusBadGateway, "failed to publish rule: "+err.Error())
		return
	}
	if err := s.ruleCache.ReplaceAll(rules.RuleSet{Rules: shared.Rules, Version: shared.Version}); err != nil {
		errResp(w, http.StatusInternalServerError, "failed to apply rule: "+err.Error())
		return
	}
	s.logger.Info("rule published", zap.String("method", rule.Method), zap.String("path", rule.Path))
	s.writeRegistered(w, rule)
}

func (s *Server) writeRegistered(w http.ResponseWriter, rule config.Rule) {
	registered, ok := s.governor.Registry().Lookup(rule.Method, rule.Path)
	if !ok {
		errResp(w, http.StatusInternalServerError, "rule vanished after registration")
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(registered))
}

func (s *Server) peekHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method, path := q.Get("method"), q.Get("path")
	if method == "" || path == "" {
		errResp(w, http.StatusBadRequest, "method and path are required")
		return
	}
	usage, err := s.governor.Peek(r.Context(), method, path)
	if errors.Is(err, core.ErrNoRule) {
		errResp(w, http.StatusNotFound, "no rule matches "+method+" "+path)
		return
	}
	if err != nil {
		errResp(w, http.StatusServiceUnavailable, "peek failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PeekResponse{
		Rule:      toRuleResponse(usage.Rule),
		Count:     usage.Count,
		Remaining: usage.Remaining,
		ResetInMs: usage.ResetIn,
	})
}

func toRuleResponse(r router.Rule) RuleResponse {
	return RuleResponse{
		Key:      r.Key(),
		Method:   r.Method,
		Path:     r.Template,
		WindowMs: r.Window.Milliseconds(),
		Limit:    r.Limit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errResp(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Code: status, Message: msg})
}
