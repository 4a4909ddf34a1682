package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	envPrefix = "RELGUARD_"
)

// repoConfigName is the per-repository config file, looked up in the
// working directory before the user-level file.
const repoConfigName = ".relguard.yaml"

// LoadWithFile loads configuration from a YAML file, then overrides with
// RELGUARD_* environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RELGUARD_REPO_TRUNK_REF, ...)
//  2. YAML config file
//  3. Defaults
//
// When configPath is empty the loader tries .relguard.yaml in the working
// directory, then ~/.config/relguard/config.yaml; a missing default file
// is not an error. An explicitly given path must exist.
//
// # Environment Variable Mapping
//
// Variables are matched by the RELGUARD_ prefix. After stripping it, the
// first underscore separates the section from the field name:
//
//	RELGUARD_REPO_TRUNK_REF   -> repo.trunk_ref
//	RELGUARD_LOGGING_FORMAT   -> logging.format
//	RELGUARD_MATRIX_OWNERS_FILE -> matrix.owners_file
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath()
	}

	if configPath != "" {
		content, err := readConfigFile(configPath)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		case os.IsNotExist(err):
			if explicit {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			// Default locations are optional.
		default:
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps an environment variable name to a config key. The section
// is everything up to the first underscore after the prefix; underscores
// in the field name are kept.
func envKey(s string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) == 1 {
		return trimmed
	}
	return parts[0] + "." + parts[1]
}

// defaultConfigPath returns the first default location that exists, or
// empty when none does.
func defaultConfigPath() string {
	if _, err := os.Stat(repoConfigName); err == nil {
		return repoConfigName
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	userPath := filepath.Join(home, ".config", "relguard", "config.yaml")
	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}
	return ""
}

// readConfigFile opens the file once and validates size on the open
// descriptor to avoid a stat/open race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
