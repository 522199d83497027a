// Package meetingkit is a client for a meeting-platform REST API. Every call
// goes through one dispatcher that applies per-route throttle rules before
// the request leaves the process and turns provider failures into
// descriptive errors.
package meetingkit

import (
	"context"
	"fmt"
	"time"
)

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tilinna/clock"
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit/api"
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/core"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/limiter"
	"github.com/nanjiek/meetingkit/internal/logging"
	"github.com/nanjiek/meetingkit/internal/metrics"
	"github.com/nanjiek/meetingkit/internal/repo"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/rules"
	"github.com/nanjiek/meetingkit/internal/rules/source"
	"github.com/nanjiek/meetingkit/internal/server"
	"github.com/nanjiek/meetingkit/transport"
)

// Client owns the process-wide Governor. All endpoint categories share it,
// so a rule's window counts calls from every category.
type Client struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *router.Registry
	ruleCache  *rules.Cache
	governor   *core.Governor
	dispatcher *dispatch.Dispatcher
	poller     *rules.Poller
	publisher  server.Publisher
	gatherer   prometheus.Gatherer
	redis      *repo.RedisRepo
	ownsRedis  bool

	meetings   *api.Meetings
	recordings *api.CloudRecordings
}

// New builds a Client. With a rule source configured, the first sync happens
// here: under the fail-closed source policy a failed sync fails New.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	} else {
		o.cfg.ApplyDefaults()
		if err := o.cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = clock.Realtime()
	}

	c := &Client{
		cfg:      o.cfg,
		logger:   o.logger,
		registry: router.NewRegistry(),
	}

	var local []config.Rule
	if c.cfg.Throttle.DefaultRules {
		local = append(local, config.DefaultRules()...)
	}
	local = append(local, c.cfg.Throttle.Rules...)
	c.ruleCache = rules.NewCache(c.registry, local, c.logger)
	if err := c.ruleCache.Bootstrap(); err != nil {
		return nil, fmt.Errorf("register rules: %w", err)
	}

	if c.cfg.Throttle.Backend == config.BackendRedis || c.cfg.RuleSource.Redis {
		if err := c.connectRedis(ctx, o); err != nil {
			return nil, err
		}
	}

	var counter limiter.Counter = limiter.NewMemory(limiter.WithClock(o.clock))
	if c.cfg.Throttle.Backend == config.BackendRedis {
		brk := c.cfg.Throttle.Breaker
		counter = limiter.NewBreaker(limiter.NewRedis(c.redis),
			brk.Failures,
			time.Duration(brk.CooldownMs)*time.Millisecond,
			limiter.WithBreakerClock(o.clock),
			limiter.WithBreakerLogger(c.logger.Named("breaker")))
	}
	c.governor = core.NewGovernor(c.registry, counter, c.cfg.Throttle.FailPolicy)

	if err := c.startRuleSource(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	observers := append([]dispatch.Observer{logging.NewObserver(c.logger)}, o.observers...)
	if o.registerer != nil {
		col, err := metrics.New(o.registerer)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		observers = append(observers, col)
		if g, ok := o.registerer.(prometheus.Gatherer); ok {
			c.gatherer = g
		}
	}

	tr := o.transport
	if tr == nil {
		tr = c.httpTransport(o)
	}
	c.dispatcher = dispatch.New(c.governor, tr,
		dispatch.WithObserver(dispatch.Observers(observers...)),
		dispatch.WithClock(o.clock))

	c.meetings = api.NewMeetings(c.dispatcher)
	c.recordings = api.NewCloudRecordings(c.dispatcher, o.clock)
	return c, nil
}

func (c *Client) connectRedis(ctx context.Context, o *options) error {
	repoOpts := []repo.Option{repo.WithLogger(c.logger.Named("redis"))}
	if o.redis != nil {
		repoOpts = append(repoOpts, repo.WithClient(o.redis))
	}
	r, err := repo.NewRedis(ctx, c.cfg.Redis, repoOpts...)
	if err != nil {
		return err
	}
	c.redis = r
	c.ownsRedis = o.redis == nil
	return nil
}

func (c *Client) startRuleSource(ctx context.Context) error {
	src := c.cfg.RuleSource
	if !src.Enabled() {
		return nil
	}

	var rs source.RuleSource
	switch {
	case src.File != "":
		rs = source.NewFileSource(src.File, src.Format)
	case src.URL != "":
		rs = source.NewHTTPSource(src)
	default:
		redisSource := source.NewRedisSource(c.redis)
		c.publisher = redisSource
		rs = redisSource
	}

	c.poller = rules.NewPoller(rs, c.ruleCache, rules.PollerConfig{
		Interval:   time.Duration(src.PollIntervalMs) * time.Millisecond,
		FailPolicy: src.FailPolicy,
	}, c.logger)
	if _, err := c.poller.SyncOnce(ctx); err != nil {
		if src.FailPolicy == config.FailClosed {
			return fmt.Errorf("load rules from source: %w", err)
		}
		c.logger.Warn("rules source unavailable, using local rules", zap.Error(err))
	}
	return nil
}

func (c *Client) httpTransport(o *options) transport.Transport {
	httpOpts := []transport.HTTPOption{
		transport.WithTimeout(time.Duration(c.cfg.Client.TimeoutMs) * time.Millisecond),
		transport.WithUserAgent(c.cfg.Client.UserAgent),
		transport.WithLogger(c.logger),
	}
	if o.token != "" {
		httpOpts = append(httpOpts, transport.WithHeader("Authorization", "Bearer "+o.token))
	}
	for k, v := range o.headers {
		httpOpts = append(httpOpts, transport.WithHeader(k, v))
	}
	return transport.NewHTTP(c.cfg.Client.BaseURL, httpOpts...)
}

func (c *Client) Meetings() *api.Meetings {
	return c.meetings
}

func (c *Client) CloudRecordings() *api.CloudRecordings {
	return c.recordings
}

// Send dispatches a hand-built descriptor through the shared governor, for
// endpoints the api package does not cover.
func (c *Client) Send(ctx context.Context, d Descriptor) (*transport.Response, error) {
	return c.dispatcher.Send(ctx, d)
}

// AddRule registers a throttle rule at runtime. A rule with the same method
// and path shape is replaced. window is truncated to milliseconds.
func (c *Client) AddRule(method, path string, window time.Duration, limit int64) error {
	return c.ruleCache.Upsert(config.Rule{
		Method:   method,
		Path:     path,
		WindowMs: window.Milliseconds(),
		Limit:    limit,
	})
}

// Rules lists the registered rules.
func (c *Client) Rules() []Rule {
	return c.registry.Rules()
}

// Resolve reports the rule that would govern method and path.
func (c *Client) Resolve(method, path string) (Rule, bool) {
	return c.registry.Resolve(method, path)
}

// Usage reports the current window for the rule governing method and path.
func (c *Client) Usage(ctx context.Context, method, path string) (Usage, error) {
	return c.governor.Peek(ctx, method, path)
}

// WatchRules keeps the rule source in sync until ctx is done. Without a
// rule source it just waits.
func (c *Client) WatchRules(ctx context.Context) error {
	if c.poller == nil {
		<-ctx.Done()
		return nil
	}
	return c.poller.Start(ctx)
}

// Serve runs the admin HTTP surface on cfg.Admin.HTTPAddr and watches the
// rule source until ctx is done.
func (c *Client) Serve(ctx context.Context) error {
	opts := []server.Option{server.WithLogger(c.logger)}
	if c.publisher != nil {
		opts = append(opts, server.WithPublisher(c.publisher))
	}
	if c.gatherer != nil {
		opts = append(opts, server.WithGatherer(c.gatherer))
	}
	srv := server.NewServer(c.cfg.Admin, c.ruleCache, c.governor, opts...)
	return srv.Run(ctx, c.WatchRules)
}

// Close releases the redis connection when the client dialed it.
func (c *Client) Close() error {
	if c.redis == nil || !c.ownsRedis {
		return nil
	}
	return c.redis.Close()
}
