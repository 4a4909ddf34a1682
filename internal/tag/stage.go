package tag

import "fmt"

// Stage is a release maturity level. The underlying value is the rank used
// for stage-order comparisons: a Stage compares greater than every stage
// that must precede it.
type Stage int

const (
	// StageAlpha is the earliest pre-release stage.
	StageAlpha Stage = iota + 1

	// StageBeta follows alpha.
	StageBeta

	// StageRC is the release-candidate stage, last before stable.
	StageRC

	// StageStable is a published release. Stable tags carry no stage
	// suffix; the stage is implied by the bare vX.Y.Z grammar.
	StageStable
)

// String returns the lowercase stage name used in tags and reports.
func (s Stage) String() string {
	switch s {
	case StageAlpha:
		return "alpha"
	case StageBeta:
		return "beta"
	case StageRC:
		return "rc"
	case StageStable:
		return "stable"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so stages serialize by
// name, never by rank.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Stage) valid() bool {
	return s >= StageAlpha && s <= StageStable
}

// ParseStage maps a stage name to its Stage value. Unknown names are
// rejected so a typo can never silently rank below every real stage.
func ParseStage(name string) (Stage, error) {
	switch name {
	case "alpha":
		return StageAlpha, nil
	case "beta":
		return StageBeta, nil
	case "rc":
		return StageRC, nil
	case "stable":
		return StageStable, nil
	default:
		return 0, fmt.Errorf("unknown stage %q (expected alpha, beta, rc or stable)", name)
	}
}
