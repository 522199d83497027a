// Package metrics exports dispatcher activity as Prometheus collectors.
package metrics

import (
	"time"
)

import (
	"github.com/prometheus/client_golang/prometheus"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/types"
	"github.com/nanjiek/meetingkit/transport"
)

const unthrottled = "none"

// Collector implements dispatch.Observer.
type Collector struct {
	decisions *prometheus.CounterVec
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ dispatch.Observer = (*Collector)(nil)

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetingkit",
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by throttle rule and outcome.",
		}, []string{"rule", "decision"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meetingkit",
			Name:      "requests_total",
			Help:      "Dispatched calls by method, throttle rule and result category.",
		}, []string{"method", "rule", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meetingkit",
			Name:      "transport_duration_seconds",
			Help:      "Time spent in the transport for admitted calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "rule"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.decisions, c.requests, c.duration} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collector) OnDecision(_ *dispatch.Descriptor, dec types.Decision) {
	c.decisions.WithLabelValues(ruleLabel(dec), dec.Kind.String()).Inc()
}

func (c *Collector) OnResult(d *dispatch.Descriptor, dec types.Decision, _ *transport.Response, err error, elapsed time.Duration) {
	rule := ruleLabel(dec)
	c.requests.WithLabelValues(d.Method, rule, resultLabel(err)).Inc()
	if elapsed > 0 {
		c.duration.WithLabelValues(d.Method, rule).Observe(elapsed.Seconds())
	}
}

func ruleLabel(dec types.Decision) string {
	if dec.RuleKey == "" {
		return unthrottled
	}
	return dec.RuleKey
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if cat := apierr.CategoryOf(err); cat != "" {
		return string(cat)
	}
	return "error"
}
