// Package policy loads the stage gating policy consumed by the gating
// engine. The policy document is JSON or YAML shaped:
//
//	{
//	  "schema_version": "relguard.stage-policy.v1",
//	  "required_previous_stage": {"beta": "alpha", "rc": "beta", "stable": "rc"},
//	  "required_checks": {"rc": ["unit", "integration"]}
//	}
//
// Stage keys and values are validated against the closed stage set at load
// time so a typo fails the run instead of silently disabling a gate. Stages
// absent from the tables simply have no prerequisite and no required checks.
package policy

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/relguard/internal/tag"
)

// ErrInvalidPolicy indicates the policy document could not be parsed or
// names a stage outside the closed stage set.
var ErrInvalidPolicy = errors.New("invalid stage policy")

// Policy is the immutable per-invocation gating table.
type Policy struct {
	schemaVersion string
	previous      map[tag.Stage]tag.Stage
	checks        map[tag.Stage][]string
}

type fileSchema struct {
	SchemaVersion         string              `koanf:"schema_version"`
	RequiredPreviousStage map[string]string   `koanf:"required_previous_stage"`
	RequiredChecks        map[string][]string `koanf:"required_checks"`
}

// LoadFile reads and parses the policy document at path.
func LoadFile(path string) (*Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stage policy %s: %w", path, err)
	}
	p, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("stage policy %s: %w", path, err)
	}
	return p, nil
}

// Parse parses a policy document. YAML is a superset of JSON, so both
// serializations of the schema are accepted.
func Parse(content []byte) (*Policy, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	var raw fileSchema
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	p := &Policy{
		schemaVersion: raw.SchemaVersion,
		previous:      make(map[tag.Stage]tag.Stage, len(raw.RequiredPreviousStage)),
		checks:        make(map[tag.Stage][]string, len(raw.RequiredChecks)),
	}
	for key, value := range raw.RequiredPreviousStage {
		stage, err := tag.ParseStage(key)
		if err != nil {
			return nil, fmt.Errorf("%w: required_previous_stage: %v", ErrInvalidPolicy, err)
		}
		previous, err := tag.ParseStage(value)
		if err != nil {
			return nil, fmt.Errorf("%w: required_previous_stage.%s: %v", ErrInvalidPolicy, key, err)
		}
		p.previous[stage] = previous
	}
	for key, names := range raw.RequiredChecks {
		stage, err := tag.ParseStage(key)
		if err != nil {
			return nil, fmt.Errorf("%w: required_checks: %v", ErrInvalidPolicy, err)
		}
		p.checks[stage] = names
	}
	return p, nil
}

// SchemaVersion returns the document's self-declared schema version, empty
// when the document omitted it.
func (p *Policy) SchemaVersion() string { return p.schemaVersion }

// RequiredPreviousStage returns the stage that must already carry a sibling
// tag before stage may publish. ok is false when stage has no prerequisite.
func (p *Policy) RequiredPreviousStage(stage tag.Stage) (tag.Stage, bool) {
	previous, ok := p.previous[stage]
	return previous, ok
}

// RequiredChecks returns the ordered check names configured for stage,
// empty when none are configured.
func (p *Policy) RequiredChecks(stage tag.Stage) []string {
	return p.checks[stage]
}
