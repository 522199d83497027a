package meetingkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tilinna/clock"
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/transport"
)

type options struct {
	// cfg is the full configuration.
	// default: config.Default()
	cfg *config.Config

	// transport carries admitted requests. When nil an HTTP transport is
	// built from cfg.Client, token and headers.
	transport transport.Transport

	token   string
	headers map[string]string

	// logger receives the client's own logs.
	// default: zap.NewNop()
	logger *zap.Logger

	// clock drives the in-memory windows and default date ranges.
	// default: clock.Realtime()
	clock clock.Clock

	// redis is used instead of dialing cfg.Redis.
	redis redis.UniversalClient

	// registerer receives the Prometheus collectors. nil disables metrics.
	registerer prometheus.Registerer

	observers []dispatch.Observer
}

type Option func(o *options)

// WithConfig replaces the default configuration. The value is validated by
// New.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithTransport replaces the HTTP transport, e.g. with a fake in tests.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request made by
// the built-in HTTP transport. Obtaining and refreshing the token is up to
// the caller.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[key] = value
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRedisClient shares an existing client for the redis window backend
// and rule source. The client is not closed by Client.Close.
func WithRedisClient(cli redis.UniversalClient) Option {
	return func(o *options) {
		o.redis = cli
	}
}

// WithMetrics registers the client's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithObserver adds an observer of every dispatched call.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

func defaultOptions() *options {
	return &options{
		logger: zap.NewNop(),
		clock:  clock.Realtime(),
	}
}
