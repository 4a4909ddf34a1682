package canary

import (
	"fmt"
	"regexp"
)

// candidatePattern is deliberately looser than the stage gate's tag
// grammar: canary candidates may carry arbitrary build suffixes such as
// v1.4.0-nightly.20260314.
var candidatePattern = regexp.MustCompile(`^v\d+\.\d+\.\d+([.-][0-9A-Za-z.-]+)?$`)

// breachRatioDisabled is reported when a threshold is zero or negative,
// which disables the metric by making any observation a hard breach.
const breachRatioDisabled = 999.0

// Decision is the canary verdict for one observation window.
type Decision string

const (
	// DecisionPromote rolls the canary forward.
	DecisionPromote Decision = "promote"

	// DecisionHold keeps the current split while operators investigate.
	DecisionHold Decision = "hold"

	// DecisionAbort rolls the canary back.
	DecisionAbort Decision = "abort"
)

// Mode selects whether the decision is actionable.
type Mode string

const (
	// ModeDryRun previews the decision; the result is never actionable.
	ModeDryRun Mode = "dry-run"

	// ModeExecute marks promote and abort decisions actionable when no
	// violations were found. A hold is never actionable; it always means
	// a human looks first.
	ModeExecute Mode = "execute"
)

// ParseMode validates a mode string from the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDryRun, ModeExecute:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (expected dry-run or execute)", s)
}

// Metrics is one observation window's aggregated measurements.
type Metrics struct {
	ErrorRate    float64
	CrashRate    float64
	P95LatencyMS float64
	SampleSize   int
}

// BreachRatios are each metric's observed value divided by its threshold.
type BreachRatios struct {
	ErrorRate    float64
	CrashRate    float64
	P95LatencyMS float64
}

// Max returns the worst ratio across the three metrics.
func (r BreachRatios) Max() float64 {
	m := r.ErrorRate
	if r.CrashRate > m {
		m = r.CrashRate
	}
	if r.P95LatencyMS > m {
		m = r.P95LatencyMS
	}
	return m
}

// Result is the outcome of one canary evaluation. Built once by Evaluate
// and never mutated afterwards.
type Result struct {
	CandidateTag   string
	CandidateSHA   string
	Mode           Mode
	Decision       Decision
	ReadyToExecute bool
	Metrics        Metrics
	BreachRatios   BreachRatios
	Warnings       []string
	Violations     []string
}

// Evaluate classifies one metrics window against the policy. The decision
// is a pure function of its inputs:
//
//   - every metric at or under its threshold (max ratio within the soft
//     margin) promotes;
//   - a breach within the hard margin holds, with a warning;
//   - a breach beyond the hard margin aborts, with a warning;
//   - any violation (malformed candidate tag, insufficient sample)
//     forces a hold regardless of the metric ratios.
func Evaluate(pol *Policy, candidateTag, candidateSHA string, mode Mode, m Metrics) *Result {
	var violations, warnings []string

	if !candidatePattern.MatchString(candidateTag) {
		violations = append(violations, fmt.Sprintf(
			"Candidate tag `%s` does not match semver-like tag format (vX.Y.Z[-suffix]).", candidateTag))
	}

	if m.SampleSize < pol.MinimumSampleSize {
		violations = append(violations, fmt.Sprintf(
			"Insufficient sample size for canary decision: %d < required %d.",
			m.SampleSize, pol.MinimumSampleSize))
	}

	ratios := BreachRatios{
		ErrorRate:    breachRatio(m.ErrorRate, pol.Thresholds.MaxErrorRate),
		CrashRate:    breachRatio(m.CrashRate, pol.Thresholds.MaxCrashRate),
		P95LatencyMS: breachRatio(m.P95LatencyMS, pol.Thresholds.MaxP95LatencyMS),
	}

	var decision Decision
	switch worst := ratios.Max(); {
	case worst <= pol.SoftBreachRatio:
		decision = DecisionPromote
	case worst <= pol.HardBreachRatio:
		decision = DecisionHold
		warnings = append(warnings, fmt.Sprintf(
			"One or more metrics exceeded threshold but stayed within soft breach margin (<=%gx).",
			pol.HardBreachRatio))
	default:
		decision = DecisionAbort
		warnings = append(warnings, fmt.Sprintf(
			"One or more metrics exceeded hard breach margin (>%gx).", pol.HardBreachRatio))
	}

	if len(violations) > 0 {
		decision = DecisionHold
	}

	ready := mode == ModeExecute &&
		(decision == DecisionPromote || decision == DecisionAbort) &&
		len(violations) == 0

	return &Result{
		CandidateTag:   candidateTag,
		CandidateSHA:   candidateSHA,
		Mode:           mode,
		Decision:       decision,
		ReadyToExecute: ready,
		Metrics:        m,
		BreachRatios:   ratios,
		Warnings:       warnings,
		Violations:     violations,
	}
}

func breachRatio(observed, threshold float64) float64 {
	if threshold <= 0 {
		return breachRatioDisabled
	}
	return observed / threshold
}
