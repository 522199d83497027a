package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/types"
	"github.com/nanjiek/meetingkit/transport"
)

func TestNew(t *testing.T) {
	l, err := New(config.LogCfg{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))

	_, err = New(config.LogCfg{Level: "loud"})
	assert.Error(t, err)
	_, err = New(config.LogCfg{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetingkit.log")
	l, err := New(config.LogCfg{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("hello", zap.String("k", "v"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewObserver(zap.New(core))
	d := &dispatch.Descriptor{Method: "GET", Path: "/meetings/1"}
	dec := types.Decision{Kind: types.Reject, RuleKey: "GET /meetings/:", RetryAfter: time.Second}

	o.OnDecision(d, dec)
	o.OnResult(d, dec, nil, &apierr.ThrottledError{RetryAfter: time.Second}, 0)
	o.OnResult(d, types.Decision{}, &transport.Response{StatusCode: 404}, &apierr.TranslatedError{Kind: apierr.CategoryMapped, Status: 404}, time.Millisecond)
	o.OnResult(d, types.Decision{}, nil, &apierr.ValidationError{Code: apierr.CodeInvalidRequest}, 0)
	o.OnResult(d, types.Decision{}, &transport.Response{StatusCode: 200}, nil, time.Millisecond)
	o.OnResult(d, types.Decision{}, nil, errors.New("store down"), 0)

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "call throttled", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(404), entries[1].ContextMap()["status"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "call done", entries[3].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[4].Level)
}
