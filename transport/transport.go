// Package transport is the network boundary of meetingkit. The dispatcher
// hands admitted requests to a Transport and never touches the network
// itself.
package transport

import (
	"context"
	"net/http"
)

// Request is what the dispatcher sends. Path is already encoded and may carry
// a query string; Params holds the remaining parameters.
type Request struct {
	Method string
	Path   string
	Params map[string]any
}

// Response is the provider's reply. Body is the raw payload.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs one request. A returned error means no response was
// received; provider errors are reported through Response.StatusCode.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
