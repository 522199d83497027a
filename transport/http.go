package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"

	defaultTimeout = 10 * time.Second
)

// HTTP sends requests to a REST API rooted at BaseURL. GET and DELETE
// params travel in the query string, every other method sends them as a
// JSON body.
type HTTP struct {
	baseURL   string
	client    *http.Client
	userAgent string
	header    http.Header
	logger    *zap.Logger
}

type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) { h.userAgent = ua }
}

// WithHeader adds a header to every request, e.g. a bearer token obtained by
// the host application.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) { h.header.Add(key, value) }
}

func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		header:  http.Header{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := h.build(ctx, req)
	if err != nil {
		return nil, err
	}
	reqID := httpReq.Header.Get(HeaderRequestID)

	start := time.Now()
	res, err := h.client.Do(httpReq)
	if err != nil {
		h.logger.Debug("request failed",
			zap.String("request_id", reqID),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	h.logger.Debug("request done",
		zap.String("request_id", reqID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (h *HTTP) build(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(req.Method)
	target := h.baseURL + req.Path

	var body io.Reader
	if inQuery(method) {
		if q := encodeQuery(req.Params); q != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q
		}
	} else if req.Params != nil {
		data, err := json.Marshal(req.Params)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if h.userAgent != "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	return httpReq, nil
}

func inQuery(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete || method == http.MethodHead
}

// encodeQuery writes params in key order so requests are reproducible.
func encodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := params[k]
		if v == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(fmt.Sprint(v)))
	}
	return sb.String()
}
