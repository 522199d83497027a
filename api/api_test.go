package api

import (
	"context"
	"sync"
)

import (
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/errmap"
	"github.com/nanjiek/meetingkit/transport"
)

// stubSender records descriptors and answers from a queue. An empty queue
// answers 200 with an empty JSON object.
type stubSender struct {
	mu    sync.Mutex
	sent  []dispatch.Descriptor
	reply []stubReply
}

type stubReply struct {
	status int
	body   string
	err    error
}

func (s *stubSender) Send(_ context.Context, d dispatch.Descriptor) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, d)

	r := stubReply{status: 200, body: `{}`}
	if len(s.reply) > 0 {
		r, s.reply = s.reply[0], s.reply[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	res := &transport.Response{StatusCode: r.status, Body: []byte(r.body)}
	if !res.OK() {
		return nil, errmap.Translate(r.status, res.Body, d.ErrorMap)
	}
	if d.PostProcess != nil {
		return d.PostProcess(res)
	}
	return res, nil
}

func (s *stubSender) last() dispatch.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}
