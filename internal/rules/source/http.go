package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
)

// HTTPSource pulls a rule document from a URL, e.g. a config service or an
// object store.
type HTTPSource struct {
	url    string
	format string
	client *http.Client
}

func NewHTTPSource(cfg config.SourceCfg) *HTTPSource {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	format := cfg.Format
	if format == "" {
		if u, err := url.Parse(cfg.URL); err == nil {
			format = FormatFor(u.Path)
		}
	}
	return &HTTPSource{
		url:    cfg.URL,
		format: format,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (RulesPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return RulesPayload{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return RulesPayload{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RulesPayload{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return RulesPayload{}, fmt.Errorf("rules fetch failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	version := resp.Header.Get("Content-MD5")
	if version == "" {
		version = strings.Trim(resp.Header.Get("ETag"), `"`)
	}
	if version == "" {
		version = digest(body)
	}

	rules, err := ParseRules(body, s.format)
	if err != nil {
		return RulesPayload{}, err
	}

	return RulesPayload{
		Rules:   rules,
		Version: version,
	}, nil
}
