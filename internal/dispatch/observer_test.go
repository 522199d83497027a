package dispatch

import (
	"errors"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
)

import (
	"github.com/nanjiek/meetingkit/internal/types"
)

func TestObserversFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	o := Observers(a, nil, b)
	d := &Descriptor{Method: "GET", Path: "/meetings/1"}

	o.OnDecision(d, types.Decision{Kind: types.Allow})
	o.OnResult(d, types.Decision{Kind: types.Allow}, nil, errors.New("x"), 0)

	for _, r := range []*recorder{a, b} {
		assert.Len(t, r.decisions, 1)
		assert.Len(t, r.results, 1)
	}
}
