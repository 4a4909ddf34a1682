package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relguard/internal/gate"
	"github.com/fyrsmithlabs/relguard/internal/logging"
	"github.com/fyrsmithlabs/relguard/internal/policy"
	"github.com/fyrsmithlabs/relguard/internal/provenance"
	"github.com/fyrsmithlabs/relguard/internal/report"
)

type prereleaseOptions struct {
	repoRoot        string
	tag             string
	policyFile      string
	mode            string
	manifestPath    string
	trunkRef        string
	offline         bool
	outputJSON      string
	outputMD        string
	failOnViolation bool
}

func prereleaseCmd(a *app) *cobra.Command {
	var opts prereleaseOptions

	cmd := &cobra.Command{
		Use:   "prerelease",
		Short: "Gate a release tag on stage order and provenance",
		Long: `Validate a candidate release tag against the stage policy and the
repository's history, then write a JSON and a Markdown report.

The decision checks that the tag resolves to a commit on the trunk
line, that the stage ladder was not skipped or regressed for its
version, and that the manifest version at the tagged commit matches
the tag.

Examples:
  # Dry-run a release candidate
  relguard prerelease --tag v1.4.0-rc.1 --stage-config-file release-stages.json \
    --output-json out/report.json --output-md out/report.md

  # Gate a publish job, failing the pipeline on violations
  relguard prerelease --tag v1.4.0 --mode publish --fail-on-violation \
    --stage-config-file release-stages.json \
    --output-json out/report.json --output-md out/report.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrerelease(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.repoRoot, "repo-root", ".", "repository root to inspect")
	f.StringVar(&opts.tag, "tag", "", "candidate tag, e.g. v1.4.0-rc.1")
	f.StringVar(&opts.policyFile, "stage-config-file", "", "stage policy document (JSON or YAML)")
	f.StringVar(&opts.mode, "mode", "dry-run", "evaluation mode: dry-run or publish")
	f.StringVar(&opts.manifestPath, "manifest-path", "", "manifest path inside the repository (default from config: Cargo.toml)")
	f.StringVar(&opts.trunkRef, "trunk-ref", "", "ref release tags must descend from (default from config: origin/main)")
	f.BoolVar(&opts.offline, "offline", false, "skip the pre-validation fetch")
	f.StringVar(&opts.outputJSON, "output-json", "", "report JSON output path")
	f.StringVar(&opts.outputMD, "output-md", "", "report Markdown output path")
	f.BoolVar(&opts.failOnViolation, "fail-on-violation", false, "exit 3 when the verdict has violations")
	_ = cmd.MarkFlagRequired("tag")
	_ = cmd.MarkFlagRequired("stage-config-file")
	_ = cmd.MarkFlagRequired("output-json")
	_ = cmd.MarkFlagRequired("output-md")

	return cmd
}

func runPrerelease(ctx context.Context, a *app, opts prereleaseOptions) error {
	mode, err := gate.ParseMode(opts.mode)
	if err != nil {
		return usageErrorf("%v", err)
	}

	pol, err := policy.LoadFile(opts.policyFile)
	if err != nil {
		return usageErrorf("loading stage policy: %v", err)
	}

	trunkRef := a.cfg.Repo.TrunkRef
	if opts.trunkRef != "" {
		trunkRef = opts.trunkRef
	}
	manifestPath := a.cfg.Repo.ManifestPath
	if opts.manifestPath != "" {
		manifestPath = opts.manifestPath
	}

	oracle, err := provenance.Open(opts.repoRoot, provenance.Options{
		TrunkRef:     trunkRef,
		Offline:      opts.offline || a.cfg.Repo.Offline,
		AuthToken:    a.cfg.Repo.AuthToken,
		FetchTimeout: a.cfg.Repo.FetchTimeout.Duration(),
	})
	if err != nil {
		return usageErrorf("%v", err)
	}

	ctx = logging.WithTag(ctx, opts.tag)
	log := logging.FromContext(ctx).Named("prerelease")

	eng, err := gate.NewEngine(&gate.Config{
		TrunkRef:     trunkRef,
		ManifestPath: manifestPath,
	}, oracle, pol, log.Underlying().With(logging.ContextFields(ctx)...))
	if err != nil {
		return unexpectedErrorf("building gate engine: %v", err)
	}

	verdict, err := eng.Evaluate(ctx, opts.tag, mode)
	if err != nil {
		// Only a malformed tag aborts evaluation; everything else lands
		// in the verdict.
		return usageErrorf("%v", err)
	}

	doc := report.FromVerdict(verdict)
	if err := report.WriteFiles(doc, doc.Markdown(), opts.outputJSON, opts.outputMD); err != nil {
		return unexpectedErrorf("writing reports: %v", err)
	}

	log.Info(ctx, "reports written",
		zap.String("json", opts.outputJSON),
		zap.String("markdown", opts.outputMD))

	if opts.failOnViolation && len(verdict.Violations) > 0 {
		return violationFailure("prerelease guard violations found:", verdict.Violations)
	}
	return nil
}
