// Package report renders gating verdicts into their machine-readable and
// human-readable artifacts.
//
// The JSON document layout is a published contract consumed by release
// automation; field order, nullability, and the schema_version string all
// stay stable within a major schema version. The Markdown rendering is
// derived from the same document with no independent logic.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/relguard/internal/gate"
)

// PrereleaseSchemaVersion identifies the stage-gate report layout.
const PrereleaseSchemaVersion = "relguard.prerelease-guard.v1"

// Document is the serialized form of a gating Verdict. Field order is the
// wire order.
type Document struct {
	SchemaVersion       string    `json:"schema_version"`
	GeneratedAt         time.Time `json:"generated_at"`
	PolicySchemaVersion *string   `json:"policy_schema_version"`
	Tag                 string    `json:"tag"`
	TagSHA              *string   `json:"tag_sha"`
	Version             string    `json:"version"`
	Stage               string    `json:"stage"`
	StageNumber         *uint64   `json:"stage_number"`
	Mode                string    `json:"mode"`
	ReadyToPublish      bool      `json:"ready_to_publish"`
	RequiredChecks      []string  `json:"required_checks"`
	SiblingTags         []string  `json:"sibling_tags"`
	Warnings            []string  `json:"warnings"`
	Violations          []string  `json:"violations"`
}

// FromVerdict builds the wire document for v. tag_sha is null when the
// tag did not resolve, stage_number is null for stable tags, and
// policy_schema_version is null when the policy did not declare one.
func FromVerdict(v *gate.Verdict) *Document {
	d := &Document{
		SchemaVersion:  PrereleaseSchemaVersion,
		GeneratedAt:    v.GeneratedAt,
		Tag:            v.Tag.Raw,
		Version:        v.Tag.Version.String(),
		Stage:          v.Tag.Stage.String(),
		Mode:           string(v.Mode),
		ReadyToPublish: v.ReadyToPublish,
		RequiredChecks: orEmpty(v.RequiredChecks),
		SiblingTags:    orEmpty(v.SiblingTags),
		Warnings:       orEmpty(v.Warnings),
		Violations:     orEmpty(v.Violations),
	}
	if v.PolicySchemaVersion != "" {
		schema := v.PolicySchemaVersion
		d.PolicySchemaVersion = &schema
	}
	if v.CommitSHA != "" {
		sha := v.CommitSHA
		d.TagSHA = &sha
	}
	if v.Tag.IsPrerelease() {
		seq := v.Tag.Sequence
		d.StageNumber = &seq
	}
	return d
}

// Markdown renders the human-readable companion of the document.
func (d *Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# Pre-release Guard Report\n\n")
	fmt.Fprintf(&b, "- Generated at: `%s`\n", d.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Tag: `%s`\n", d.Tag)
	fmt.Fprintf(&b, "- Stage: `%s`\n", d.Stage)
	fmt.Fprintf(&b, "- Mode: `%s`\n", d.Mode)
	fmt.Fprintf(&b, "- Ready to publish: `%s`\n\n", strconv.FormatBool(d.ReadyToPublish))

	b.WriteString("## Required Checks\n")
	if len(d.RequiredChecks) > 0 {
		for _, name := range d.RequiredChecks {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	} else {
		b.WriteString("- none configured\n")
	}
	b.WriteString("\n")

	if len(d.Violations) > 0 {
		b.WriteString("## Violations\n")
		for _, item := range d.Violations {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if len(d.Warnings) > 0 {
		b.WriteString("## Warnings\n")
		for _, item := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// WriteFiles writes doc as two-space indented JSON to jsonPath and its
// Markdown companion to mdPath, creating parent directories as needed.
// Both files end with a trailing newline.
func WriteFiles(doc any, markdown, jsonPath, mdPath string) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	payload = append(payload, '\n')

	for _, path := range []string{jsonPath, mdPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating report directory %s: %w", dir, err)
			}
		}
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", jsonPath, err)
	}
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mdPath, err)
	}
	return nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
