// Package config provides configuration loading for relguard.
//
// Configuration is resolved from a YAML file and RELGUARD_* environment
// variables; command-line flags override both at the call site.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete relguard configuration.
type Config struct {
	Repo    RepoConfig    `koanf:"repo"`
	Logging LoggingConfig `koanf:"logging"`
	Matrix  MatrixConfig  `koanf:"matrix"`
}

// RepoConfig holds repository and provenance settings.
type RepoConfig struct {
	// TrunkRef is the remote-tracking ref release tags must descend from.
	TrunkRef string `koanf:"trunk_ref"`
	// ManifestPath is the package manifest checked against tag versions,
	// relative to the repository root.
	ManifestPath string `koanf:"manifest_path"`
	// Offline skips the best-effort fetch before evaluation.
	Offline bool `koanf:"offline"`
	// AuthToken authenticates the fetch against private remotes.
	AuthToken Secret `koanf:"auth_token"`
	// FetchTimeout bounds the best-effort fetch before evaluation.
	FetchTimeout Duration `koanf:"fetch_timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MatrixConfig holds nightly matrix aggregation settings.
type MatrixConfig struct {
	OwnersFile string `koanf:"owners_file"`
}

// applyDefaults fills unset fields. Called after file and environment
// loading so explicit zero values from those sources survive only where
// zero is meaningful (booleans).
func applyDefaults(cfg *Config) {
	if cfg.Repo.TrunkRef == "" {
		cfg.Repo.TrunkRef = "origin/main"
	}
	if cfg.Repo.ManifestPath == "" {
		cfg.Repo.ManifestPath = "Cargo.toml"
	}
	if cfg.Repo.FetchTimeout == 0 {
		cfg.Repo.FetchTimeout = Duration(30 * time.Second)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Repo.TrunkRef == "" {
		return errors.New("repo trunk ref must not be empty")
	}
	if c.Repo.ManifestPath == "" {
		return errors.New("repo manifest path must not be empty")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q (expected console or json)", c.Logging.Format)
	}
	return nil
}
