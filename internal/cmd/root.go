// Package cmd is the meetingkit command line.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
)

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit"
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	token    string
)

var rootCmd = &cobra.Command{
	Use:           "meetingkit",
	Short:         "Rate-governed client for the meeting platform API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree until ctx is done.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("MEETINGKIT_TOKEN"), "bearer token for the provider API")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return logging.New(cfg.Log)
}

// newClient loads configuration and builds a client. The returned cleanup
// closes the client and flushes the logger.
func newClient(ctx context.Context, extra ...meetingkit.Option) (*meetingkit.Client, *zap.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := append([]meetingkit.Option{
		meetingkit.WithConfig(cfg),
		meetingkit.WithLogger(logger),
		meetingkit.WithToken(token),
	}, extra...)
	c, err := meetingkit.New(ctx, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := c.Close(); err != nil {
			logger.Warn("close client", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return c, logger, cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
