// Package api holds the endpoint categories. Each method normalizes and
// validates its options, builds a dispatch descriptor and decodes the reply.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/errmap"
	"github.com/nanjiek/meetingkit/transport"
)

// Sender is the dispatcher as seen by the endpoint layer.
type Sender interface {
	Send(ctx context.Context, d dispatch.Descriptor) (*transport.Response, error)
}

func dispatchDescriptor(method, path string, params map[string]any, em errmap.ErrorMap) dispatch.Descriptor {
	return dispatch.Descriptor{Method: method, Path: path, Params: params, ErrorMap: em}
}

func fillPath(template string, kv ...string) string {
	out := template
	for i := 0; i+1 < len(kv); i += 2 {
		out = strings.Replace(out, "{"+kv[i]+"}", kv[i+1], 1)
	}
	return out
}

func decode(res *transport.Response, out any) error {
	if res == nil || len(res.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("decode %d response: %w", res.StatusCode, err)
	}
	return nil
}

// toParams turns a request body struct into descriptor params.
func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func required(code, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &apierr.ValidationError{Code: code, Message: name + " is a required parameter"}
	}
	return nil
}
