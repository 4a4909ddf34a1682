// Package manifest extracts the declared package version from a Cargo
// build manifest.
package manifest

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where Cargo projects keep the manifest, relative to the
// repository root.
const DefaultPath = "Cargo.toml"

// ErrNoVersion indicates a manifest that parses but declares no
// package.version field.
var ErrNoVersion = errors.New("manifest declares no package version")

type document struct {
	Package struct {
		Version string `toml:"version"`
	} `toml:"package"`
}

// Version extracts the package.version string from manifest content. The
// value is returned verbatim; callers decide whether it agrees with the
// tag under evaluation. A manifest that does not parse as TOML, or whose
// version field is missing, empty, or not a string, is an error.
func Version(content []byte) (string, error) {
	var doc document
	if err := toml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	if doc.Package.Version == "" {
		return "", ErrNoVersion
	}
	return doc.Package.Version, nil
}
