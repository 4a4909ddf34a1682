package canary

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canaryTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestNewReport(t *testing.T) {
	pol := testPolicy(t)
	res := Evaluate(pol, "v0.2.0-rc.1", "abc123", ModeExecute, healthyMetrics())
	r := NewReport(res, pol, canaryTime)

	assert.Equal(t, SchemaVersion, r.SchemaVersion)
	require.NotNil(t, r.PolicySchemaVersion)
	assert.Equal(t, "relguard.canary-policy.v1", *r.PolicySchemaVersion)
	require.NotNil(t, r.CandidateSHA)
	assert.Equal(t, "abc123", *r.CandidateSHA)
	assert.Equal(t, "promote", r.Decision)
	assert.Equal(t, 60, r.ObservationWindowMinutes)
	assert.Equal(t, 500, r.MinimumSampleSize)
	assert.NotNil(t, r.Warnings)
	assert.NotNil(t, r.Violations)
}

func TestNewReportNullFields(t *testing.T) {
	pol, err := ParsePolicy([]byte(`{}`))
	require.NoError(t, err)
	res := Evaluate(pol, "v0.2.0", "", ModeDryRun, Metrics{SampleSize: 1})
	r := NewReport(res, pol, canaryTime)

	assert.Nil(t, r.PolicySchemaVersion)
	assert.Nil(t, r.CandidateSHA)
}

func TestNewReportRoundsRatios(t *testing.T) {
	pol := testPolicy(t)
	m := healthyMetrics()
	m.P95LatencyMS = 800 // 800/1200 = 0.666666...
	res := Evaluate(pol, "v0.2.0-rc.1", "", ModeDryRun, m)
	r := NewReport(res, pol, canaryTime)

	assert.Equal(t, 0.6667, r.BreachRatios.P95LatencyMS)
	assert.Equal(t, 0.5, r.BreachRatios.ErrorRate)
}

func TestReportJSONShape(t *testing.T) {
	pol := testPolicy(t)
	res := Evaluate(pol, "v0.2.0-rc.1", "abc123", ModeExecute, healthyMetrics())
	payload, err := json.MarshalIndent(NewReport(res, pol, canaryTime), "", "  ")
	require.NoError(t, err)

	want := `{
  "schema_version": "relguard.canary-guard.v1",
  "generated_at": "2026-03-14T09:26:53Z",
  "policy_schema_version": "relguard.canary-policy.v1",
  "candidate_tag": "v0.2.0-rc.1",
  "candidate_sha": "abc123",
  "mode": "execute",
  "decision": "promote",
  "ready_to_execute": true,
  "observation_window_minutes": 60,
  "minimum_sample_size": 500,
  "thresholds": {
    "max_error_rate": 0.02,
    "max_crash_rate": 0.005,
    "max_p95_latency_ms": 1200
  },
  "metrics": {
    "error_rate": 0.01,
    "crash_rate": 0.001,
    "p95_latency_ms": 800,
    "sample_size": 1000
  },
  "breach_ratios": {
    "error_rate": 0.5,
    "crash_rate": 0.2,
    "p95_latency_ms": 0.6667
  },
  "warnings": [],
  "violations": []
}`
	assert.Equal(t, want, string(payload))
}

func TestReportMarkdown(t *testing.T) {
	pol := testPolicy(t)
	m := healthyMetrics()
	m.SampleSize = 100
	res := Evaluate(pol, "v0.2.0-rc.1", "", ModeExecute, m)
	got := NewReport(res, pol, canaryTime).Markdown()

	want := "# Canary Guard Report\n" +
		"\n" +
		"- Generated at: `2026-03-14T09:26:53Z`\n" +
		"- Candidate tag: `v0.2.0-rc.1`\n" +
		"- Mode: `execute`\n" +
		"- Decision: `hold`\n" +
		"- Ready to execute: `false`\n" +
		"\n" +
		"## Metrics\n" +
		"- Error rate: `0.01` (max `0.02`)\n" +
		"- Crash rate: `0.001` (max `0.005`)\n" +
		"- P95 latency ms: `800` (max `1200`)\n" +
		"- Sample size: `100` (min `500`)\n" +
		"\n" +
		"## Violations\n" +
		"- Insufficient sample size for canary decision: 100 < required 500.\n"
	assert.Equal(t, want, got)
}
