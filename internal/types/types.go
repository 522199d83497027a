package types

import (
	"time"
)

// Kind is the outcome of an admission check.
type Kind int

const (
	Allow Kind = iota
	// Delay asks the caller to hold the request for RetryAfter before sending.
	Delay
	Reject
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Delay:
		return "delay"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the admission result for one request.
type Decision struct {
	Kind       Kind
	RuleKey    string        // identity of the matched rule, empty when unthrottled
	Count      int64         // requests counted in the window after this decision
	Remaining  int64         // capacity left in the window
	RetryAfter time.Duration // time until the window resets (Delay/Reject)
	Reason     string
}

func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Throttled reports whether a rule matched the request.
func (d Decision) Throttled() bool {
	return d.RuleKey != ""
}
