package gate

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/relguard/internal/tag"
)

// Mode selects how a Verdict's readiness flag is computed.
type Mode string

const (
	// ModeDryRun previews the decision; the Verdict is never ready.
	ModeDryRun Mode = "dry-run"

	// ModePublish marks the Verdict ready when no violations were found.
	ModePublish Mode = "publish"
)

// ParseMode validates a mode string from the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDryRun, ModePublish:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (expected dry-run or publish)", s)
}

// Verdict is the outcome of one gating decision. It is built once by
// Engine.Evaluate and never mutated afterwards.
type Verdict struct {
	// Tag is the parsed candidate.
	Tag tag.Tag

	// CommitSHA is the commit the tag resolved to, empty when resolution
	// failed.
	CommitSHA string

	// Mode the decision was evaluated under.
	Mode Mode

	// GeneratedAt is the UTC evaluation time.
	GeneratedAt time.Time

	// PolicySchemaVersion echoes the loaded policy's schema_version.
	PolicySchemaVersion string

	// ReadyToPublish is true only in publish mode with zero violations.
	ReadyToPublish bool

	// RequiredChecks lists the policy's check names for the candidate's
	// stage, in policy order.
	RequiredChecks []string

	// SiblingTags lists the other tags sharing the candidate's version
	// triple, sorted and deduplicated.
	SiblingTags []string

	// Warnings and Violations are in discovery order.
	Warnings   []string
	Violations []string
}
