package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

import (
	"github.com/nanjiek/meetingkit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP server (rules, window usage, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		c, logger, cleanup, err := newClient(cmd.Context(), meetingkit.WithMetrics(reg))
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Info("meetingkit admin starting", zap.Int("rules", len(c.Rules())))
		if err := c.Serve(cmd.Context()); err != nil {
			return err
		}
		logger.Info("meetingkit admin stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
