package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/relguard/internal/tag"
)

const samplePolicy = `{
  "schema_version": "relguard.stage-policy.v1",
  "required_previous_stage": {
    "beta": "alpha",
    "rc": "beta",
    "stable": "rc"
  },
  "required_checks": {
    "rc": ["unit", "integration"],
    "stable": ["unit", "integration", "smoke"]
  }
}`

func TestParseJSON(t *testing.T) {
	p, err := Parse([]byte(samplePolicy))
	require.NoError(t, err)

	assert.Equal(t, "relguard.stage-policy.v1", p.SchemaVersion())

	prev, ok := p.RequiredPreviousStage(tag.StageRC)
	require.True(t, ok)
	assert.Equal(t, tag.StageBeta, prev)

	_, ok = p.RequiredPreviousStage(tag.StageAlpha)
	assert.False(t, ok, "alpha has no prerequisite")

	assert.Equal(t, []string{"unit", "integration"}, p.RequiredChecks(tag.StageRC))
	assert.Empty(t, p.RequiredChecks(tag.StageBeta), "unconfigured stage has no checks")
}

func TestParseYAML(t *testing.T) {
	doc := `
schema_version: relguard.stage-policy.v1
required_previous_stage:
  rc: beta
required_checks:
  rc:
    - unit
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	prev, ok := p.RequiredPreviousStage(tag.StageRC)
	require.True(t, ok)
	assert.Equal(t, tag.StageBeta, prev)
	assert.Equal(t, []string{"unit"}, p.RequiredChecks(tag.StageRC))
}

func TestParseEmptyDocument(t *testing.T) {
	p, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Empty(t, p.SchemaVersion())
	_, ok := p.RequiredPreviousStage(tag.StageStable)
	assert.False(t, ok)
	assert.Empty(t, p.RequiredChecks(tag.StageStable))
}

func TestParseRejectsUnknownStages(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		wantIn string
	}{
		{
			name:   "unknown key in required_previous_stage",
			doc:    `{"required_previous_stage": {"gamma": "beta"}}`,
			wantIn: "gamma",
		},
		{
			name:   "unknown value in required_previous_stage",
			doc:    `{"required_previous_stage": {"rc": "gamma"}}`,
			wantIn: "gamma",
		},
		{
			name:   "unknown key in required_checks",
			doc:    `{"required_checks": {"release-candidate": ["unit"]}}`,
			wantIn: "release-candidate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestParseRejectsMalformedDocument(t *testing.T) {
	_, err := Parse([]byte(`{"required_checks": "not-a-map"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage-policy.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "relguard.stage-policy.v1", p.SchemaVersion())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPolicy, "missing file is an I/O error, not a policy error")
}
