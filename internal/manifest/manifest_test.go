package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	content := []byte(`
[package]
name = "shipyard"
version = "0.2.0"
edition = "2021"

[dependencies]
serde = "1"
`)
	got, err := Version(content)
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", got)
}

func TestVersionWithPrereleaseSuffix(t *testing.T) {
	got, err := Version([]byte("[package]\nversion = \"0.2.0-rc.1\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.2.0-rc.1", got, "suffixed versions pass through for the caller to judge")
}

func TestVersionMissingField(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no package table", "[dependencies]\nserde = \"1\"\n"},
		{"no version key", "[package]\nname = \"shipyard\"\n"},
		{"empty version", "[package]\nversion = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Version([]byte(tt.content))
			assert.ErrorIs(t, err, ErrNoVersion)
		})
	}
}

func TestVersionMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not toml", "{\"package\": {\"version\": \"0.2.0\"}}"},
		{"version not a string", "[package]\nversion = 2\n"},
		{"workspace inheritance", "[package]\nversion.workspace = true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Version([]byte(tt.content))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoVersion)
		})
	}
}
