// Package canary classifies one observation window of canary health
// metrics into a promote, hold, or abort decision against configured
// thresholds. It shares the report emission shape of the stage gate but
// carries no stage hierarchy and no provenance queries.
package canary

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Default thresholds for fields the policy document omits. An omitted
// threshold is effectively disabled; an explicit zero disables the metric
// entirely by forcing its breach ratio to the sentinel maximum.
const (
	DefaultMaxErrorRate    = 1.0
	DefaultMaxCrashRate    = 1.0
	DefaultMaxP95LatencyMS = 1e9

	DefaultSoftBreachRatio = 1.0
	DefaultHardBreachRatio = 1.5
)

// ErrInvalidPolicy indicates the canary policy could not be parsed or is
// internally inconsistent.
var ErrInvalidPolicy = errors.New("invalid canary policy")

// Thresholds are the per-metric ceilings a healthy canary stays under.
type Thresholds struct {
	MaxErrorRate    float64
	MaxCrashRate    float64
	MaxP95LatencyMS float64
}

// Policy is the immutable per-invocation canary evaluation table.
type Policy struct {
	SchemaVersion            string
	ObservationWindowMinutes int
	MinimumSampleSize        int
	Thresholds               Thresholds

	// SoftBreachRatio and HardBreachRatio bound the hold band: a maximum
	// breach ratio at or under soft promotes, at or under hard holds,
	// and above hard aborts.
	SoftBreachRatio float64
	HardBreachRatio float64
}

type fileSchema struct {
	SchemaVersion            string `koanf:"schema_version"`
	ObservationWindowMinutes int    `koanf:"observation_window_minutes"`
	MinimumSampleSize        int    `koanf:"minimum_sample_size"`
	Thresholds               struct {
		MaxErrorRate    *float64 `koanf:"max_error_rate"`
		MaxCrashRate    *float64 `koanf:"max_crash_rate"`
		MaxP95LatencyMS *float64 `koanf:"max_p95_latency_ms"`
	} `koanf:"thresholds"`
	SoftBreachRatio *float64 `koanf:"soft_breach_ratio"`
	HardBreachRatio *float64 `koanf:"hard_breach_ratio"`
}

// LoadPolicyFile reads and parses the canary policy document at path.
func LoadPolicyFile(path string) (*Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading canary policy %s: %w", path, err)
	}
	p, err := ParsePolicy(content)
	if err != nil {
		return nil, fmt.Errorf("canary policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy parses a canary policy document (JSON or YAML), applying
// defaults for omitted fields.
func ParsePolicy(content []byte) (*Policy, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	var raw fileSchema
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	p := &Policy{
		SchemaVersion:            raw.SchemaVersion,
		ObservationWindowMinutes: raw.ObservationWindowMinutes,
		MinimumSampleSize:        raw.MinimumSampleSize,
		Thresholds: Thresholds{
			MaxErrorRate:    orDefault(raw.Thresholds.MaxErrorRate, DefaultMaxErrorRate),
			MaxCrashRate:    orDefault(raw.Thresholds.MaxCrashRate, DefaultMaxCrashRate),
			MaxP95LatencyMS: orDefault(raw.Thresholds.MaxP95LatencyMS, DefaultMaxP95LatencyMS),
		},
		SoftBreachRatio: orDefault(raw.SoftBreachRatio, DefaultSoftBreachRatio),
		HardBreachRatio: orDefault(raw.HardBreachRatio, DefaultHardBreachRatio),
	}

	if p.SoftBreachRatio <= 0 {
		return nil, fmt.Errorf("%w: soft_breach_ratio must be positive, got %g", ErrInvalidPolicy, p.SoftBreachRatio)
	}
	if p.HardBreachRatio < p.SoftBreachRatio {
		return nil, fmt.Errorf("%w: hard_breach_ratio %g is below soft_breach_ratio %g",
			ErrInvalidPolicy, p.HardBreachRatio, p.SoftBreachRatio)
	}
	if p.MinimumSampleSize < 0 {
		return nil, fmt.Errorf("%w: minimum_sample_size must not be negative", ErrInvalidPolicy)
	}
	return p, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
