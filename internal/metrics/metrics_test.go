package metrics

import (
	"errors"
	"testing"
	"time"
)

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/types"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	d := &dispatch.Descriptor{Method: "GET", Path: "/meetings/1"}
	allow := types.Decision{Kind: types.Allow, RuleKey: "GET /meetings/:"}
	reject := types.Decision{Kind: types.Reject, RuleKey: "GET /meetings/:"}

	c.OnDecision(d, allow)
	c.OnResult(d, allow, nil, nil, 20*time.Millisecond)
	c.OnDecision(d, reject)
	c.OnResult(d, reject, nil, &apierr.ThrottledError{}, 0)
	c.OnDecision(d, types.Decision{Kind: types.Allow})
	c.OnResult(d, types.Decision{Kind: types.Allow}, nil, errors.New("store down"), 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("GET /meetings/:", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("GET /meetings/:", "reject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("none", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "GET /meetings/:", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "GET /meetings/:", "throttled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "none", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)

	_, err = New(nil)
	assert.NoError(t, err)
}
