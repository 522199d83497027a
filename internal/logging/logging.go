// Package logging builds zap loggers from configuration and provides a
// dispatcher observer that logs throttled and failed calls.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"
)

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/dispatch"
	"github.com/nanjiek/meetingkit/internal/types"
	"github.com/nanjiek/meetingkit/transport"
)

// New builds a logger writing to stderr and, when cfg.File is set, to a
// rotated file.
func New(cfg config.LogCfg) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Encoding) {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log encoding %q", cfg.Encoding)
	}

	atom := zap.NewAtomicLevelAt(level)
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), atom)}
	if cfg.File != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, atom))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// Observer logs dispatcher outcomes: throttled calls at info, provider and
// transport failures at warn, everything else at debug.
type Observer struct {
	logger *zap.Logger
}

var _ dispatch.Observer = (*Observer)(nil)

func NewObserver(l *zap.Logger) *Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Observer{logger: l}
}

func (o *Observer) OnDecision(*dispatch.Descriptor, types.Decision) {}

func (o *Observer) OnResult(d *dispatch.Descriptor, dec types.Decision, res *transport.Response, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("method", d.Method),
		zap.String("path", d.Path),
		zap.String("rule", dec.RuleKey),
		zap.Duration("elapsed", elapsed),
	}
	if res != nil {
		fields = append(fields, zap.Int("status", res.StatusCode))
	}
	if err == nil {
		o.logger.Debug("call done", fields...)
		return
	}

	fields = append(fields, zap.Error(err))
	switch apierr.CategoryOf(err) {
	case apierr.CategoryThrottled:
		o.logger.Info("call throttled", append(fields, zap.Duration("retry_after", dec.RetryAfter))...)
	case apierr.CategoryValidation:
		o.logger.Debug("call rejected", fields...)
	default:
		o.logger.Warn("call failed", fields...)
	}
}
