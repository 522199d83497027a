package source

import (
	"context"
	"crypto/md5"
	"fmt"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
)

// RulesPayload is a normalized rule set fetched from an external source.
type RulesPayload struct {
	Rules   []config.Rule
	Version string
}

// RuleSource fetches throttle rules from outside the process.
type RuleSource interface {
	Fetch(ctx context.Context) (RulesPayload, error)
}

// Notifier is implemented by sources that can push change signals, so the
// poller does not have to wait for its next tick.
type Notifier interface {
	Changes(ctx context.Context) <-chan struct{}
}

func digest(body []byte) string {
	sum := md5.Sum(body)
	return fmt.Sprintf("%x", sum[:])
}
