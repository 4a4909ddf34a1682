// Package tag parses release tag strings into version and stage components.
//
// Two grammars are accepted:
//
//	vMAJOR.MINOR.PATCH           stable release, e.g. v1.4.0
//	vMAJOR.MINOR.PATCH-STAGE.N   pre-release, STAGE in {alpha, beta, rc}, e.g. v1.4.0-rc.2
//
// Both shapes are matched by a single anchored pattern with an optional
// pre-release group, so a given string classifies as stable or pre-release
// by construction and can never satisfy both grammars. Anything else fails
// with ErrMalformed before any repository state is consulted.
package tag

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrMalformed indicates a tag string that matches neither grammar.
var ErrMalformed = errors.New("malformed tag")

var tagPattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)(?:-(alpha|beta|rc)\.(\d+))?$`)

// Version is a three-component release version.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// String renders the version as MAJOR.MINOR.PATCH without the leading v.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Tag is an immutable parsed release tag.
//
// Stage is StageStable for bare vX.Y.Z tags; Sequence is meaningful only
// when IsPrerelease reports true.
type Tag struct {
	Raw      string
	Version  Version
	Stage    Stage
	Sequence uint64
}

// IsPrerelease reports whether the tag carries a pre-release stage suffix.
func (t Tag) IsPrerelease() bool {
	return t.Stage != StageStable
}

// Parse classifies a tag string into exactly one of the two grammars.
//
// The returned error wraps ErrMalformed and names the expected shapes;
// callers must treat it as a usage error and stop before touching
// version-control history.
func Parse(raw string) (Tag, error) {
	m := tagPattern.FindStringSubmatch(raw)
	if m == nil {
		return Tag{}, fmt.Errorf(
			"%w: tag %q must be vX.Y.Z or vX.Y.Z-(alpha|beta|rc).N (for example v0.2.0-rc.1)",
			ErrMalformed, raw)
	}

	t := Tag{Raw: raw, Stage: StageStable}
	var err error
	if t.Version.Major, err = parseComponent(raw, m[1]); err != nil {
		return Tag{}, err
	}
	if t.Version.Minor, err = parseComponent(raw, m[2]); err != nil {
		return Tag{}, err
	}
	if t.Version.Patch, err = parseComponent(raw, m[3]); err != nil {
		return Tag{}, err
	}

	if m[4] != "" {
		stage, err := ParseStage(m[4])
		if err != nil {
			// Unreachable: the pattern only admits the three pre-release names.
			return Tag{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		t.Stage = stage
		if t.Sequence, err = parseComponent(raw, m[5]); err != nil {
			return Tag{}, err
		}
	}
	return t, nil
}

// parseComponent converts one numeric capture. Overflow of a component is
// treated as a malformed tag rather than a distinct failure.
func parseComponent(raw, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: tag %q component %q: %v", ErrMalformed, raw, s, err)
	}
	return n, nil
}
