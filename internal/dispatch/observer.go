package dispatch

import (
	"time"
)

import (
	"github.com/nanjiek/meetingkit/internal/types"
	"github.com/nanjiek/meetingkit/transport"
)

type observers []Observer

// Observers fans every notification out to each non-nil observer in order.
func Observers(list ...Observer) Observer {
	out := make(observers, 0, len(list))
	for _, o := range list {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (os observers) OnDecision(d *Descriptor, dec types.Decision) {
	for _, o := range os {
		o.OnDecision(d, dec)
	}
}

func (os observers) OnResult(d *Descriptor, dec types.Decision, res *transport.Response, err error, elapsed time.Duration) {
	for _, o := range os {
		o.OnResult(d, dec, res, err, elapsed)
	}
}
