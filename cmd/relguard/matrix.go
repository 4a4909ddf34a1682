package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relguard/internal/logging"
	"github.com/fyrsmithlabs/relguard/internal/matrix"
	"github.com/fyrsmithlabs/relguard/internal/report"
)

type matrixOptions struct {
	inputDir      string
	outputJSON    string
	outputMD      string
	ownersFile    string
	failOnFailure bool
	watch         bool
}

func matrixCmd(a *app) *cobra.Command {
	var opts matrixOptions

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Aggregate nightly lane results into a summary",
		Long: `Collect nightly-result-*.json files under the input directory and
write a JSON summary and a Markdown summary of the lane matrix.

With --watch the command keeps running, rebuilding the summaries as
lane jobs drop new result files, until interrupted; --fail-on-failure
has no effect in that mode.

Examples:
  # One-shot aggregation for a nightly pipeline
  relguard matrix --input-dir nightly/results \
    --output-json out/matrix.json --output-md out/matrix.md --fail-on-failure

  # Keep summaries fresh while lanes trickle in
  relguard matrix --watch --input-dir nightly/results \
    --owners-file lane-owners.json \
    --output-json out/matrix.json --output-md out/matrix.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.inputDir, "input-dir", "", "directory searched recursively for lane result files")
	f.StringVar(&opts.outputJSON, "output-json", "", "summary JSON output path")
	f.StringVar(&opts.outputMD, "output-md", "", "summary Markdown output path")
	f.StringVar(&opts.ownersFile, "owners-file", "", "lane owner mapping (default from config)")
	f.BoolVar(&opts.failOnFailure, "fail-on-failure", false, "exit 3 when any lane failed")
	f.BoolVar(&opts.watch, "watch", false, "rebuild the summaries as result files change")
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("output-json")
	_ = cmd.MarkFlagRequired("output-md")

	return cmd
}

func runMatrix(ctx context.Context, a *app, opts matrixOptions) error {
	ownersPath := a.cfg.Matrix.OwnersFile
	if opts.ownersFile != "" {
		ownersPath = opts.ownersFile
	}
	owners, err := matrix.LoadOwners(ownersPath)
	if err != nil {
		return usageErrorf("%v", err)
	}

	log := logging.FromContext(ctx).Named("matrix")

	if opts.watch {
		return watchMatrix(ctx, log, owners, opts)
	}

	rep, err := matrix.Aggregate(opts.inputDir, owners, time.Now().UTC())
	if err != nil {
		if errors.Is(err, matrix.ErrInputDir) {
			return usageErrorf("%v", err)
		}
		return unexpectedErrorf("%v", err)
	}

	if err := report.WriteFiles(rep, rep.Markdown(), opts.outputJSON, opts.outputMD); err != nil {
		return unexpectedErrorf("writing summaries: %v", err)
	}

	log.Info(ctx, "matrix summary written",
		zap.Int("total", rep.Total),
		zap.Int("passed", rep.Passed),
		zap.Int("failed", rep.Failed))

	if opts.failOnFailure && rep.Failed > 0 {
		return gateFailuref("nightly matrix contains failed lanes: %d", rep.Failed)
	}
	return nil
}

// watchMatrix serves summary rebuilds until the context is cancelled or
// the process is interrupted.
func watchMatrix(ctx context.Context, log *logging.Logger, owners map[string]string, opts matrixOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := matrix.NewWatcher(opts.inputDir, owners, opts.outputJSON, opts.outputMD,
		log.Underlying().With(logging.ContextFields(ctx)...))
	if err != nil {
		if errors.Is(err, matrix.ErrInputDir) {
			return usageErrorf("%v", err)
		}
		return unexpectedErrorf("%v", err)
	}

	if err := w.Start(ctx); err != nil {
		return unexpectedErrorf("starting watcher: %v", err)
	}
	defer w.Stop()

	<-ctx.Done()
	log.Info(ctx, "matrix watch stopped")
	return nil
}
