package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/relguard/internal/config"
	"github.com/fyrsmithlabs/relguard/internal/logging"
)

// app holds the state PersistentPreRunE builds for every subcommand:
// the merged configuration, the process logger, and the run ID stamped
// on all log entries of one invocation.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	runID  string
}

func rootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "relguard",
		Short: "Release gating guards for CI pipelines",
		Long: `relguard evaluates release promotion gates from CI.

It ships three guards: prerelease validates a candidate tag's stage
ladder and repository provenance, canary scores a metrics window
against rollout thresholds, and matrix aggregates nightly lane results
into a summary.

Each guard writes a JSON report and a Markdown report; the fail flags
turn adverse findings into a non-zero exit for pipeline gating.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFile(configPath)
			if err != nil {
				return usageErrorf("%v", err)
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if logFormat != "" {
				cfg.Logging.Format = logFormat
			}

			level, err := logging.LevelFromString(cfg.Logging.Level)
			if err != nil {
				return usageErrorf("%v", err)
			}
			logCfg := logging.NewDefaultConfig()
			logCfg.Level = level
			logCfg.Format = cfg.Logging.Format

			logger, err := logging.NewLogger(logCfg)
			if err != nil {
				return usageErrorf("%v", err)
			}

			a.cfg = cfg
			a.logger = logger
			a.runID = uuid.NewString()

			ctx := logging.WithLogger(cmd.Context(), logger)
			ctx = logging.WithRunID(ctx, a.runID)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file path (default .relguard.yaml, then ~/.config/relguard/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default from config)")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json (default from config)")

	cmd.AddCommand(prereleaseCmd(a))
	cmd.AddCommand(canaryCmd(a))
	cmd.AddCommand(matrixCmd(a))

	return cmd
}
