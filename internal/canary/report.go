package canary

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion identifies the canary report layout.
const SchemaVersion = "relguard.canary-guard.v1"

// Report is the serialized form of a canary Result. Field order is the
// wire order.
type Report struct {
	SchemaVersion            string           `json:"schema_version"`
	GeneratedAt              time.Time        `json:"generated_at"`
	PolicySchemaVersion      *string          `json:"policy_schema_version"`
	CandidateTag             string           `json:"candidate_tag"`
	CandidateSHA             *string          `json:"candidate_sha"`
	Mode                     string           `json:"mode"`
	Decision                 string           `json:"decision"`
	ReadyToExecute           bool             `json:"ready_to_execute"`
	ObservationWindowMinutes int              `json:"observation_window_minutes"`
	MinimumSampleSize        int              `json:"minimum_sample_size"`
	Thresholds               thresholdsRecord `json:"thresholds"`
	Metrics                  metricsRecord    `json:"metrics"`
	BreachRatios             ratiosRecord     `json:"breach_ratios"`
	Warnings                 []string         `json:"warnings"`
	Violations               []string         `json:"violations"`
}

type thresholdsRecord struct {
	MaxErrorRate    float64 `json:"max_error_rate"`
	MaxCrashRate    float64 `json:"max_crash_rate"`
	MaxP95LatencyMS float64 `json:"max_p95_latency_ms"`
}

type metricsRecord struct {
	ErrorRate    float64 `json:"error_rate"`
	CrashRate    float64 `json:"crash_rate"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
	SampleSize   int     `json:"sample_size"`
}

type ratiosRecord struct {
	ErrorRate    float64 `json:"error_rate"`
	CrashRate    float64 `json:"crash_rate"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
}

// NewReport builds the wire document for one Result evaluated under pol.
// Breach ratios are rounded to four decimal places.
func NewReport(res *Result, pol *Policy, generatedAt time.Time) *Report {
	r := &Report{
		SchemaVersion:            SchemaVersion,
		GeneratedAt:              generatedAt,
		CandidateTag:             res.CandidateTag,
		Mode:                     string(res.Mode),
		Decision:                 string(res.Decision),
		ReadyToExecute:           res.ReadyToExecute,
		ObservationWindowMinutes: pol.ObservationWindowMinutes,
		MinimumSampleSize:        pol.MinimumSampleSize,
		Thresholds: thresholdsRecord{
			MaxErrorRate:    pol.Thresholds.MaxErrorRate,
			MaxCrashRate:    pol.Thresholds.MaxCrashRate,
			MaxP95LatencyMS: pol.Thresholds.MaxP95LatencyMS,
		},
		Metrics: metricsRecord{
			ErrorRate:    res.Metrics.ErrorRate,
			CrashRate:    res.Metrics.CrashRate,
			P95LatencyMS: res.Metrics.P95LatencyMS,
			SampleSize:   res.Metrics.SampleSize,
		},
		BreachRatios: ratiosRecord{
			ErrorRate:    round4(res.BreachRatios.ErrorRate),
			CrashRate:    round4(res.BreachRatios.CrashRate),
			P95LatencyMS: round4(res.BreachRatios.P95LatencyMS),
		},
		Warnings:   orEmpty(res.Warnings),
		Violations: orEmpty(res.Violations),
	}
	if pol.SchemaVersion != "" {
		schema := pol.SchemaVersion
		r.PolicySchemaVersion = &schema
	}
	if res.CandidateSHA != "" {
		sha := res.CandidateSHA
		r.CandidateSHA = &sha
	}
	return r
}

// Markdown renders the human-readable companion of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Canary Guard Report\n\n")
	fmt.Fprintf(&b, "- Generated at: `%s`\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Candidate tag: `%s`\n", r.CandidateTag)
	fmt.Fprintf(&b, "- Mode: `%s`\n", r.Mode)
	fmt.Fprintf(&b, "- Decision: `%s`\n", r.Decision)
	fmt.Fprintf(&b, "- Ready to execute: `%s`\n\n", strconv.FormatBool(r.ReadyToExecute))

	b.WriteString("## Metrics\n")
	fmt.Fprintf(&b, "- Error rate: `%s` (max `%s`)\n",
		formatFloat(r.Metrics.ErrorRate), formatFloat(r.Thresholds.MaxErrorRate))
	fmt.Fprintf(&b, "- Crash rate: `%s` (max `%s`)\n",
		formatFloat(r.Metrics.CrashRate), formatFloat(r.Thresholds.MaxCrashRate))
	fmt.Fprintf(&b, "- P95 latency ms: `%s` (max `%s`)\n",
		formatFloat(r.Metrics.P95LatencyMS), formatFloat(r.Thresholds.MaxP95LatencyMS))
	fmt.Fprintf(&b, "- Sample size: `%d` (min `%d`)\n\n", r.Metrics.SampleSize, r.MinimumSampleSize)

	if len(r.Violations) > 0 {
		b.WriteString("## Violations\n")
		for _, item := range r.Violations {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n")
		for _, item := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
