package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

import (
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	FailOpen   = "fail-open"
	FailClosed = "fail-closed"

	DefaultBaseURL = "https://api.zoom.us/v2"
)

// ClientCfg configures the provider connection.
type ClientCfg struct {
	BaseURL   string `yaml:"baseUrl"`   // provider API root, e.g. "https://api.zoom.us/v2"
	TimeoutMs int    `yaml:"timeoutMs"` // per-request timeout
	UserAgent string `yaml:"userAgent"`
}

// ThrottleCfg selects the window counter backend and the rules to register.
type ThrottleCfg struct {
	Backend      string `yaml:"backend"`      // memory | redis
	FailPolicy   string `yaml:"failPolicy"`   // fail-open | fail-closed, only consulted for the redis backend
	DefaultRules bool   `yaml:"defaultRules"` // opt in to DefaultRules(), registered before Rules
	Rules        []Rule `yaml:"rules"`

	Breaker BreakerCfg `yaml:"breaker"`
}

// BreakerCfg guards the redis window store.
type BreakerCfg struct {
	Failures   int `yaml:"failures"`   // consecutive store errors before opening, default 5
	CooldownMs int `yaml:"cooldownMs"` // time spent open before a probe, default 1000
}

// Rule is one throttle rule as written in configuration.
type Rule struct {
	Method   string `yaml:"method"   json:"method"`   // HTTP verb
	Path     string `yaml:"path"     json:"path"`     // path template, e.g. "/meetings/:meetingId"
	WindowMs int64  `yaml:"windowMs" json:"windowMs"` // window length in milliseconds
	Limit    int64  `yaml:"limit"    json:"limit"`    // admitted requests per window
}

// RedisCfg configures the shared window store.
type RedisCfg struct {
	Addr           string   `yaml:"addr"`  // single address or comma separated list
	Addrs          []string `yaml:"addrs"` // cluster addresses
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	DB             int      `yaml:"db"`
	Prefix         string   `yaml:"prefix"` // key prefix
	PoolSize       int      `yaml:"poolSize"`
	MinIdleConns   int      `yaml:"minIdleConns"`
	MaxRetries     int      `yaml:"maxRetries"`
	DialTimeoutMs  int      `yaml:"dialTimeoutMs"`
	ReadTimeoutMs  int      `yaml:"readTimeoutMs"`
	WriteTimeoutMs int      `yaml:"writeTimeoutMs"`
	OpTimeoutMs    int      `yaml:"opTimeoutMs"` // per-command deadline
}

// SourceCfg configures an external rule source that is polled for changes.
type SourceCfg struct {
	File           string `yaml:"file"`           // local yaml/json rule file
	URL            string `yaml:"url"`            // remote rule document
	Redis          bool   `yaml:"redis"`          // rule document shared through redis
	Format         string `yaml:"format"`         // json | yaml (auto-detect if empty)
	PollIntervalMs int    `yaml:"pollIntervalMs"` // default 5000
	TimeoutMs      int    `yaml:"timeoutMs"`      // default 2000, url only
	FailPolicy     string `yaml:"failPolicy"`     // fail-open keeps the last rules, fail-closed refuses to start
}

func (s SourceCfg) Enabled() bool {
	return s.File != "" || s.URL != "" || s.Redis
}

// AdminCfg configures the admin HTTP surface.
type AdminCfg struct {
	HTTPAddr string `yaml:"httpAddr"` // e.g. ":9090"
}

// LogCfg configures zap.
type LogCfg struct {
	Level       string `yaml:"level"`    // debug | info | warn | error
	Encoding    string `yaml:"encoding"` // json | console
	Development bool   `yaml:"development"`
	File        string `yaml:"file"` // also write to this file, rotated
	MaxSizeMB   int    `yaml:"maxSizeMb"`
	MaxBackups  int    `yaml:"maxBackups"`
	MaxAgeDays  int    `yaml:"maxAgeDays"`
	Compress    bool   `yaml:"compress"`
}

// Config is the full meetingkit configuration.
type Config struct {
	Client     ClientCfg   `yaml:"client"`
	Throttle   ThrottleCfg `yaml:"throttle"`
	Redis      RedisCfg    `yaml:"redis"`
	RuleSource SourceCfg   `yaml:"ruleSource"`
	Admin      AdminCfg    `yaml:"admin"`
	Log        LogCfg      `yaml:"log"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads a YAML file, expanding ${VAR} references from the environment.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = DefaultBaseURL
	}
	if c.Client.TimeoutMs <= 0 {
		c.Client.TimeoutMs = 10000
	}
	if c.Client.UserAgent == "" {
		c.Client.UserAgent = "meetingkit"
	}
	c.Throttle.Backend = strings.ToLower(strings.TrimSpace(c.Throttle.Backend))
	if c.Throttle.Backend == "" {
		c.Throttle.Backend = BackendMemory
	}
	c.Throttle.FailPolicy = normalizePolicy(c.Throttle.FailPolicy)
	if c.Throttle.Breaker.Failures <= 0 {
		c.Throttle.Breaker.Failures = 5
	}
	if c.Throttle.Breaker.CooldownMs <= 0 {
		c.Throttle.Breaker.CooldownMs = 1000
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "meetingkit"
	}
	if c.RuleSource.PollIntervalMs <= 0 {
		c.RuleSource.PollIntervalMs = 5000
	}
	if c.RuleSource.TimeoutMs <= 0 {
		c.RuleSource.TimeoutMs = 2000
	}
	c.RuleSource.FailPolicy = normalizePolicy(c.RuleSource.FailPolicy)
	if c.Admin.HTTPAddr == "" {
		c.Admin.HTTPAddr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB <= 0 {
			c.Log.MaxSizeMB = 100
		}
		if c.Log.MaxBackups <= 0 {
			c.Log.MaxBackups = 5
		}
		if c.Log.MaxAgeDays <= 0 {
			c.Log.MaxAgeDays = 14
		}
	}
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var err error
	if !strings.HasPrefix(c.Client.BaseURL, "http://") && !strings.HasPrefix(c.Client.BaseURL, "https://") {
		err = multierr.Append(err, fmt.Errorf("client.baseUrl must be an http(s) URL, got %q", c.Client.BaseURL))
	}
	switch c.Throttle.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" && len(c.Redis.Addrs) == 0 {
			err = multierr.Append(err, errors.New("redis.addr or redis.addrs is required for the redis backend"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("throttle.backend %q is not one of memory, redis", c.Throttle.Backend))
	}
	for i, r := range c.Throttle.Rules {
		if rerr := r.Validate(); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("throttle.rules[%d]: %w", i, rerr))
		}
	}
	set := 0
	for _, on := range []bool{c.RuleSource.File != "", c.RuleSource.URL != "", c.RuleSource.Redis} {
		if on {
			set++
		}
	}
	if set > 1 {
		err = multierr.Append(err, errors.New("ruleSource.file, ruleSource.url and ruleSource.redis are mutually exclusive"))
	}
	if c.RuleSource.Redis && c.Redis.Addr == "" && len(c.Redis.Addrs) == 0 {
		err = multierr.Append(err, errors.New("ruleSource.redis needs redis.addr or redis.addrs"))
	}
	if f := strings.ToLower(c.RuleSource.Format); f != "" && f != "json" && f != "yaml" {
		err = multierr.Append(err, fmt.Errorf("ruleSource.format %q is not one of json, yaml", c.RuleSource.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if e := strings.ToLower(c.Log.Encoding); e != "json" && e != "console" {
		err = multierr.Append(err, fmt.Errorf("log.encoding %q is not one of json, console", c.Log.Encoding))
	}
	return err
}

// Validate checks the fields that do not need template compilation.
func (r Rule) Validate() error {
	var err error
	switch strings.ToUpper(strings.TrimSpace(r.Method)) {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
	default:
		err = multierr.Append(err, fmt.Errorf("method %q is not an HTTP verb", r.Method))
	}
	if strings.TrimSpace(r.Path) == "" {
		err = multierr.Append(err, errors.New("path is required"))
	}
	if r.WindowMs <= 0 {
		err = multierr.Append(err, errors.New("windowMs must be positive"))
	}
	if r.Limit <= 0 {
		err = multierr.Append(err, errors.New("limit must be positive"))
	}
	return err
}

// DefaultRules mirrors the provider's daily limits on meeting creation and
// update. A rule's window is keyed by its path shape, so these cap the whole
// account at 100 calls per 24h rather than each user. They are off unless
// throttle.defaultRules is set.
func DefaultRules() []Rule {
	const day = int64(24 * 60 * 60 * 1000)
	return []Rule{
		{Method: http.MethodPost, Path: "/users/:userId/meetings", WindowMs: day, Limit: 100},
		{Method: http.MethodPatch, Path: "/meetings/:meetingId", WindowMs: day, Limit: 100},
	}
}

func normalizePolicy(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p != FailOpen && p != FailClosed {
		return FailClosed
	}
	return p
}
