// Package dispatch is the single path every endpoint call takes to the
// network: validate, admit, send, then translate or post-process.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

import (
	"github.com/tilinna/clock"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/errmap"
	"github.com/nanjiek/meetingkit/internal/types"
	"github.com/nanjiek/meetingkit/transport"
)

// PostProcessor reshapes a successful response.
type PostProcessor func(*transport.Response) (*transport.Response, error)

// Descriptor describes one call. Build a new one per call.
type Descriptor struct {
	Method      string
	Path        string
	Params      map[string]any
	ErrorMap    errmap.ErrorMap
	PostProcess PostProcessor
}

// Admitter decides whether a request may be sent now.
type Admitter interface {
	Admit(ctx context.Context, method, path string) (types.Decision, error)
}

// Observer is told about every admission decision and every finished call.
// It must not block.
type Observer interface {
	OnDecision(d *Descriptor, dec types.Decision)
	OnResult(d *Descriptor, dec types.Decision, res *transport.Response, err error, elapsed time.Duration)
}

type Dispatcher struct {
	admitter  Admitter
	transport transport.Transport
	observer  Observer
	clock     clock.Clock
}

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

func New(admitter Admitter, tr transport.Transport, opts ...Option) *Dispatcher {
	if admitter == nil {
		panic("dispatch: nil admitter")
	}
	if tr == nil {
		panic("dispatch: nil transport")
	}
	d := &Dispatcher{
		admitter:  admitter,
		transport: tr,
		clock:     clock.Realtime(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send runs one call. Errors are always one of the apierr types, except for
// a window store failure under the fail-closed policy, which is wrapped.
func (d *Dispatcher) Send(ctx context.Context, desc Descriptor) (*transport.Response, error) {
	if err := validate(&desc); err != nil {
		return nil, err
	}

	dec, err := d.admitter.Admit(ctx, desc.Method, desc.Path)
	d.notifyDecision(&desc, dec)
	if err != nil {
		err = fmt.Errorf("admit %s %s: %w", desc.Method, desc.Path, err)
		d.notifyResult(&desc, dec, nil, err, 0)
		return nil, err
	}
	if !dec.Allowed() {
		err := &apierr.ThrottledError{
			Method:     desc.Method,
			Path:       desc.Path,
			Rule:       dec.RuleKey,
			RetryAfter: dec.RetryAfter,
		}
		d.notifyResult(&desc, dec, nil, err, 0)
		return nil, err
	}

	start := d.clock.Now()
	res, err := d.transport.Do(ctx, transport.Request{
		Method: desc.Method,
		Path:   desc.Path,
		Params: desc.Params,
	})
	elapsed := d.clock.Now().Sub(start)
	if err == nil && res == nil {
		err = errors.New("transport returned no response")
	}
	if err != nil {
		terr := &apierr.TransportError{Method: desc.Method, Path: desc.Path, Err: err}
		d.notifyResult(&desc, dec, nil, terr, elapsed)
		return nil, terr
	}

	if !res.OK() {
		terr := errmap.Translate(res.StatusCode, res.Body, desc.ErrorMap)
		d.notifyResult(&desc, dec, res, terr, elapsed)
		return nil, terr
	}

	if desc.PostProcess != nil {
		res, err = desc.PostProcess(res)
		if err != nil {
			err = fmt.Errorf("post-process %s %s: %w", desc.Method, desc.Path, err)
			d.notifyResult(&desc, dec, nil, err, elapsed)
			return nil, err
		}
	}
	d.notifyResult(&desc, dec, res, nil, elapsed)
	return res, nil
}

func validate(desc *Descriptor) error {
	desc.Method = strings.ToUpper(strings.TrimSpace(desc.Method))
	if desc.Method == "" {
		return &apierr.ValidationError{Code: apierr.CodeInvalidRequest, Message: "request method is required"}
	}
	switch desc.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
	default:
		return &apierr.ValidationError{Code: apierr.CodeInvalidRequest, Message: fmt.Sprintf("unsupported request method %q", desc.Method)}
	}
	if desc.Path == "" {
		return &apierr.ValidationError{Code: apierr.CodeInvalidRequest, Message: "request path is required"}
	}
	if !strings.HasPrefix(desc.Path, "/") {
		return &apierr.ValidationError{Code: apierr.CodeInvalidRequest, Message: fmt.Sprintf("request path %q must start with /", desc.Path)}
	}
	return nil
}

func (d *Dispatcher) notifyDecision(desc *Descriptor, dec types.Decision) {
	if d.observer != nil {
		d.observer.OnDecision(desc, dec)
	}
}

func (d *Dispatcher) notifyResult(desc *Descriptor, dec types.Decision, res *transport.Response, err error, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.OnResult(desc, dec, res, err, elapsed)
	}
}
