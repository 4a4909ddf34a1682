package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relguard/internal/canary"
	"github.com/fyrsmithlabs/relguard/internal/logging"
	"github.com/fyrsmithlabs/relguard/internal/report"
)

type canaryOptions struct {
	policyFile      string
	candidateTag    string
	candidateSHA    string
	mode            string
	errorRate       float64
	crashRate       float64
	p95LatencyMS    float64
	sampleSize      int
	outputJSON      string
	outputMD        string
	failOnViolation bool
}

func canaryCmd(a *app) *cobra.Command {
	var opts canaryOptions

	cmd := &cobra.Command{
		Use:   "canary",
		Short: "Decide promote, hold, or abort from canary metrics",
		Long: `Score one canary observation window against the rollout policy and
write a JSON and a Markdown report carrying the decision.

Metrics at or under their thresholds promote. A breach within the soft
margin holds for another window; a breach past the hard margin aborts
the rollout. Violations such as an undersized sample always hold.

Examples:
  # Score a window without acting on it
  relguard canary --policy-file canary-policy.json \
    --candidate-tag v1.4.0-rc.1 --candidate-sha 3f9c01d \
    --error-rate 0.004 --crash-rate 0.0001 --p95-latency-ms 180 --sample-size 4200 \
    --output-json out/canary.json --output-md out/canary.md

  # Gate the rollout step on the decision
  relguard canary --mode execute --fail-on-violation --policy-file canary-policy.json \
    --candidate-tag v1.4.0-rc.1 \
    --error-rate 0.004 --crash-rate 0.0001 --p95-latency-ms 180 --sample-size 4200 \
    --output-json out/canary.json --output-md out/canary.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanary(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policyFile, "policy-file", "", "canary policy document (JSON)")
	f.StringVar(&opts.candidateTag, "candidate-tag", "", "tag under canary, e.g. v1.4.0-rc.1")
	f.StringVar(&opts.candidateSHA, "candidate-sha", "", "commit the canary build was cut from")
	f.StringVar(&opts.mode, "mode", "dry-run", "evaluation mode: dry-run or execute")
	f.Float64Var(&opts.errorRate, "error-rate", 0, "observed error rate over the window")
	f.Float64Var(&opts.crashRate, "crash-rate", 0, "observed crash rate over the window")
	f.Float64Var(&opts.p95LatencyMS, "p95-latency-ms", 0, "observed p95 latency in milliseconds")
	f.IntVar(&opts.sampleSize, "sample-size", 0, "number of observations in the window")
	f.StringVar(&opts.outputJSON, "output-json", "", "report JSON output path")
	f.StringVar(&opts.outputMD, "output-md", "", "report Markdown output path")
	f.BoolVar(&opts.failOnViolation, "fail-on-violation", false, "exit 3 when the result has violations")
	_ = cmd.MarkFlagRequired("policy-file")
	_ = cmd.MarkFlagRequired("candidate-tag")
	_ = cmd.MarkFlagRequired("error-rate")
	_ = cmd.MarkFlagRequired("crash-rate")
	_ = cmd.MarkFlagRequired("p95-latency-ms")
	_ = cmd.MarkFlagRequired("sample-size")
	_ = cmd.MarkFlagRequired("output-json")
	_ = cmd.MarkFlagRequired("output-md")

	return cmd
}

func runCanary(ctx context.Context, a *app, opts canaryOptions) error {
	mode, err := canary.ParseMode(opts.mode)
	if err != nil {
		return usageErrorf("%v", err)
	}

	pol, err := canary.LoadPolicyFile(opts.policyFile)
	if err != nil {
		return usageErrorf("loading canary policy: %v", err)
	}

	ctx = logging.WithTag(ctx, opts.candidateTag)
	log := logging.FromContext(ctx).Named("canary")

	res := canary.Evaluate(pol, opts.candidateTag, opts.candidateSHA, mode, canary.Metrics{
		ErrorRate:    opts.errorRate,
		CrashRate:    opts.crashRate,
		P95LatencyMS: opts.p95LatencyMS,
		SampleSize:   opts.sampleSize,
	})

	rep := canary.NewReport(res, pol, time.Now().UTC())
	if err := report.WriteFiles(rep, rep.Markdown(), opts.outputJSON, opts.outputMD); err != nil {
		return unexpectedErrorf("writing reports: %v", err)
	}

	log.Info(ctx, "canary window scored",
		zap.String("decision", string(res.Decision)),
		zap.String("mode", string(mode)),
		zap.Bool("ready_to_execute", res.ReadyToExecute),
		zap.Int("violations", len(res.Violations)),
		zap.Int("warnings", len(res.Warnings)))

	if opts.failOnViolation && len(res.Violations) > 0 {
		return violationFailure("canary guard violations found:", res.Violations)
	}
	return nil
}
