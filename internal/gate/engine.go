package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relguard/internal/manifest"
	"github.com/fyrsmithlabs/relguard/internal/policy"
	"github.com/fyrsmithlabs/relguard/internal/provenance"
	"github.com/fyrsmithlabs/relguard/internal/tag"
)

// Config controls the evaluation environment of an Engine.
type Config struct {
	// TrunkRef is the reference release tags must descend from.
	TrunkRef string

	// ManifestPath is the manifest location inside the repository tree.
	ManifestPath string

	// Now supplies the Verdict timestamp. Tests inject a fixed clock.
	Now func() time.Time
}

// DefaultConfig returns the stock evaluation environment.
func DefaultConfig() *Config {
	return &Config{
		TrunkRef:     provenance.DefaultTrunkRef,
		ManifestPath: manifest.DefaultPath,
		Now:          time.Now,
	}
}

// Engine evaluates release tags against the stage policy and repository
// provenance. One Engine may serve many Evaluate calls; it holds no
// mutable state and caches nothing between decisions.
type Engine struct {
	cfg    *Config
	oracle provenance.Oracle
	policy *policy.Policy
	logger *zap.Logger
}

// NewEngine creates a gating engine. The oracle and policy are required;
// a nil cfg uses DefaultConfig and a nil logger discards logs.
func NewEngine(cfg *Config, oracle provenance.Oracle, pol *policy.Policy, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if oracle == nil {
		return nil, errors.New("provenance oracle is required")
	}
	if pol == nil {
		return nil, errors.New("stage policy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TrunkRef == "" {
		cfg.TrunkRef = provenance.DefaultTrunkRef
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = manifest.DefaultPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg, oracle: oracle, policy: pol, logger: logger}, nil
}

// Evaluate runs the full decision for rawTag and returns its Verdict.
// The only error it returns wraps tag.ErrMalformed; every other problem
// lands inside the Verdict as a violation or warning.
func (e *Engine) Evaluate(ctx context.Context, rawTag string, mode Mode) (*Verdict, error) {
	t, err := tag.Parse(rawTag)
	if err != nil {
		return nil, err
	}

	var violations, warnings []string

	if err := e.oracle.Refresh(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf(
			"Failed to refresh %s refs and tags before validation: %v", e.cfg.TrunkRef, err))
		e.logger.Warn("history refresh failed", zap.String("tag", t.Raw), zap.Error(err))
	}

	commitSHA := ""
	if sha, err := e.oracle.Resolve(ctx, t.Raw); err != nil {
		violations = append(violations, fmt.Sprintf("Unable to resolve tag `%s`: %v", t.Raw, err))
	} else {
		commitSHA = sha
	}

	if commitSHA != "" {
		ok, err := e.oracle.IsAncestor(ctx, commitSHA, e.cfg.TrunkRef)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf(
				"Could not verify ancestry of `%s` against `%s`: %v", t.Raw, e.cfg.TrunkRef, err))
			e.logger.Warn("ancestry check skipped", zap.String("tag", t.Raw), zap.Error(err))
		case !ok:
			violations = append(violations, fmt.Sprintf(
				"Tag `%s` (%s) is not reachable from `%s`; release tags must originate from the trunk line.",
				t.Raw, commitSHA, e.cfg.TrunkRef))
		}
	}

	siblingTags, siblingStages, siblingsKnown := e.collectSiblings(ctx, t, &warnings)

	if siblingsKnown {
		if previous, required := e.policy.RequiredPreviousStage(t.Stage); required {
			if !containsStage(siblingStages, previous) {
				violations = append(violations, fmt.Sprintf(
					"Stage `%s` requires at least one `%s` tag for version `%s` before publishing `%s`.",
					t.Stage, previous, t.Version, t.Raw))
			}
		}

		var highest tag.Stage
		for _, s := range siblingStages {
			if s > highest {
				highest = s
			}
		}
		if highest > t.Stage {
			violations = append(violations, fmt.Sprintf(
				"Higher stage tags already exist for `%s`. Refusing stage regression to `%s`.",
				t.Version, t.Stage))
		}
	}

	if commitSHA != "" {
		violations, warnings = e.checkManifest(ctx, t, commitSHA, violations, warnings)
	}

	ready := mode == ModePublish && len(violations) == 0

	v := &Verdict{
		Tag:                 t,
		CommitSHA:           commitSHA,
		Mode:                mode,
		GeneratedAt:         e.cfg.Now().UTC(),
		PolicySchemaVersion: e.policy.SchemaVersion(),
		ReadyToPublish:      ready,
		RequiredChecks:      append([]string(nil), e.policy.RequiredChecks(t.Stage)...),
		SiblingTags:         siblingTags,
		Warnings:            warnings,
		Violations:          violations,
	}

	e.logger.Info("stage gate evaluated",
		zap.String("tag", t.Raw),
		zap.String("stage", t.Stage.String()),
		zap.String("mode", string(mode)),
		zap.Bool("ready_to_publish", ready),
		zap.Int("violations", len(violations)),
		zap.Int("warnings", len(warnings)))

	return v, nil
}

// collectSiblings lists the tags sharing t's version triple, excluding t
// itself. Names that do not parse, and parseable tags of other triples
// caught by the prefix listing (v1.2.3 vs v1.2.30), are not siblings.
// siblingsKnown is false when the listing itself failed; the stage checks
// are skipped in that case rather than run against an empty set.
func (e *Engine) collectSiblings(ctx context.Context, t tag.Tag, warnings *[]string) ([]string, []tag.Stage, bool) {
	names, err := e.oracle.ListTags(ctx, "v"+t.Version.String())
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf(
			"Could not list sibling tags for version `%s`: %v; stage checks skipped.", t.Version, err))
		e.logger.Warn("sibling listing failed", zap.String("tag", t.Raw), zap.Error(err))
		return nil, nil, false
	}

	seen := make(map[string]struct{}, len(names))
	var tags []string
	var stages []tag.Stage
	for _, name := range names {
		if name == t.Raw {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		sibling, err := tag.Parse(name)
		if err != nil || sibling.Version != t.Version {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
		stages = append(stages, sibling.Stage)
	}
	sort.Strings(tags)
	return tags, stages, true
}

// checkManifest compares the manifest version at the resolved commit with
// the tag's version triple. Absence of the manifest is tolerated; older
// history may predate it.
func (e *Engine) checkManifest(ctx context.Context, t tag.Tag, commitSHA string, violations, warnings []string) ([]string, []string) {
	content, err := e.oracle.ReadFileAtRef(ctx, commitSHA, e.cfg.ManifestPath)
	switch {
	case errors.Is(err, provenance.ErrFileNotFound):
		return violations, warnings
	case err != nil:
		warnings = append(warnings, fmt.Sprintf(
			"Could not read %s at `%s`: %v; manifest check skipped.", e.cfg.ManifestPath, t.Raw, err))
		e.logger.Warn("manifest check skipped", zap.String("tag", t.Raw), zap.Error(err))
		return violations, warnings
	}

	declared, err := manifest.Version(content)
	if err != nil {
		violations = append(violations, fmt.Sprintf(
			"Manifest %s at `%s` does not declare a usable version: %v.", e.cfg.ManifestPath, t.Raw, err))
		return violations, warnings
	}
	if declared != t.Version.String() {
		violations = append(violations, fmt.Sprintf(
			"Tag `%s` version `%s` does not match %s version `%s` at the same ref.",
			t.Raw, t.Version, e.cfg.ManifestPath, declared))
	}
	return violations, warnings
}

func containsStage(stages []tag.Stage, want tag.Stage) bool {
	for _, s := range stages {
		if s == want {
			return true
		}
	}
	return false
}
