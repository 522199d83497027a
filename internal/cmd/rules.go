package cmd

import (
	"context"
	"fmt"
	"strings"
)

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

import (
	"github.com/nanjiek/meetingkit/internal/config"
	"github.com/nanjiek/meetingkit/internal/router"
	"github.com/nanjiek/meetingkit/internal/rules"
	"github.com/nanjiek/meetingkit/internal/rules/source"
)

var rulesFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect throttle rules",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [rules-file]",
	Short: "Validate a rule document, or the configured rules when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []config.Rule
		if len(args) == 1 {
			payload, err := source.NewFileSource(args[0], rulesFormat).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			list = payload.Rules
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			list = localRules(cfg)
		}

		var errs error
		compiled := make([]router.Rule, 0, len(list))
		for i, r := range list {
			if err := r.Validate(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("rule %d (%s %s): %w", i, r.Method, r.Path, err))
				continue
			}
			compiled = append(compiled, rules.ToRouter(r))
		}
		if errs != nil {
			return errs
		}
		reg := router.NewRegistry()
		if err := reg.Replace(compiled); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range reg.Rules() {
			fmt.Fprintf(out, "%-32s %s\n", r.Key(), r)
		}
		if dup := len(list) - reg.Len(); dup > 0 {
			fmt.Fprintf(out, "%d rule(s) overwritten by a later rule with the same shape\n", dup)
		}
		fmt.Fprintf(out, "ok: %d rule(s)\n", reg.Len())
		return nil
	},
}

var rulesResolveCmd = &cobra.Command{
	Use:   "resolve METHOD PATH",
	Short: "Show which configured rule governs a request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := configuredRegistry(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		rule, ok := reg.Resolve(args[0], args[1])
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintf(out, "%s %s is not throttled\n", strings.ToUpper(args[0]), args[1])
			return nil
		}
		fmt.Fprintf(out, "%s %s -> %s\n", strings.ToUpper(args[0]), args[1], rule)
		return nil
	},
}

func init() {
	rulesCheckCmd.Flags().StringVar(&rulesFormat, "format", "", "json or yaml (detected from the file name when empty)")
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesResolveCmd)
	rootCmd.AddCommand(rulesCmd)
}

func localRules(cfg *config.Config) []config.Rule {
	var out []config.Rule
	if cfg.Throttle.DefaultRules {
		out = append(out, config.DefaultRules()...)
	}
	return append(out, cfg.Throttle.Rules...)
}

// configuredRegistry registers the configured rules plus those of a file
// rule source. Remote sources are not contacted.
func configuredRegistry(ctx context.Context, cfg *config.Config) (*router.Registry, error) {
	reg := router.NewRegistry()
	cache := rules.NewCache(reg, localRules(cfg), nil)
	if err := cache.Bootstrap(); err != nil {
		return nil, err
	}
	if cfg.RuleSource.File != "" {
		payload, err := source.NewFileSource(cfg.RuleSource.File, cfg.RuleSource.Format).Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := cache.ReplaceAll(rules.RuleSet{Rules: payload.Rules, Version: payload.Version}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
