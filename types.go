package meetingkit

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/core"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/errmap"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/types"
)

type (
	Config = config.Config
	// RuleConfig is a throttle rule as written in configuration.
	RuleConfig = config.Rule
	// Rule is a registered throttle rule.
	Rule = router.Rule

	Descriptor    = dispatch.Descriptor
	PostProcessor = dispatch.PostProcessor
	Observer      = dispatch.Observer

	Usage = core.Usage

	Decision     = types.Decision
	DecisionKind = types.Kind

	ErrorMap   = errmap.ErrorMap
	ErrorEntry = errmap.Entry
)

const (
	Allow  = types.Allow
	Delay  = types.Delay
	Reject = types.Reject
)

var (
	LoadConfig    = config.Load
	ParseConfig   = config.Parse
	DefaultConfig = config.Default
	DefaultRules  = config.DefaultRules

	Literal = errmap.Literal
	ByCode  = errmap.ByCode
)
