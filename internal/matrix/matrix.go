// Package matrix aggregates nightly feature-matrix lane results into one
// summary report.
//
// Each lane job drops a nightly-result-<lane>.json file under a shared
// results directory. Aggregation collects every such file recursively,
// normalizes the rows, and emits a relguard.nightly-matrix.v1 summary
// with its Markdown companion.
package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// SchemaVersion identifies the matrix summary layout.
const SchemaVersion = "relguard.nightly-matrix.v1"

// ErrInputDir indicates the lane results directory is missing or not a
// directory. Callers treat this as a usage error.
var ErrInputDir = errors.New("input directory does not exist")

const (
	lanePattern   = "**/nightly-result-*.json"
	laneStem      = "nightly-result-"
	statusSuccess = "success"
)

// Row is one lane's normalized result.
type Row struct {
	Lane            string  `json:"lane"`
	Status          string  `json:"status"`
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
	Command         string  `json:"command"`
	Owner           string  `json:"owner"`
	Source          string  `json:"source"`
}

// Report is the aggregated summary. Field order is the wire order.
type Report struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	InputDir      string    `json:"input_dir"`
	Total         int       `json:"total"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	Rows          []Row     `json:"rows"`
}

// laneFile is the loose on-disk shape lane jobs write. Absent fields get
// defaults; exit_code distinguishes absent (defaults to 1, a failure)
// from an explicit zero.
type laneFile struct {
	Lane            string  `json:"lane"`
	Status          string  `json:"status"`
	ExitCode        *int    `json:"exit_code"`
	DurationSeconds float64 `json:"duration_seconds"`
	Command         string  `json:"command"`
}

// LoadOwners reads a lane ownership document of the shape
// {"owners": {"lane": "team"}}. An empty path yields an empty map.
//
// The document is parsed with encoding/json rather than the koanf stack
// used for policy files: lane names are arbitrary keys and may contain
// the path delimiter characters koanf would split on.
func LoadOwners(ownersPath string) (map[string]string, error) {
	if ownersPath == "" {
		return map[string]string{}, nil
	}
	content, err := os.ReadFile(ownersPath)
	if err != nil {
		return nil, fmt.Errorf("reading owners file %s: %w", ownersPath, err)
	}
	var doc struct {
		Owners map[string]string `json:"owners"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("owners file %s must contain an object at key %q: %w", ownersPath, "owners", err)
	}
	if doc.Owners == nil {
		doc.Owners = map[string]string{}
	}
	return doc.Owners, nil
}

// Aggregate collects every lane result file under inputDir recursively
// and builds the summary. Lane files are visited in sorted path order so
// repeated runs over the same tree produce identical reports.
func Aggregate(inputDir string, owners map[string]string, generatedAt time.Time) (*Report, error) {
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving input dir %s: %w", inputDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputDir, abs)
	}

	matches, err := doublestar.Glob(os.DirFS(abs), lanePattern)
	if err != nil {
		return nil, fmt.Errorf("globbing lane results under %s: %w", abs, err)
	}
	sort.Strings(matches)

	rows := make([]Row, 0, len(matches))
	passed := 0
	for _, rel := range matches {
		row, err := readLane(abs, rel, owners)
		if err != nil {
			return nil, err
		}
		if row.Status == statusSuccess {
			passed++
		}
		rows = append(rows, row)
	}

	return &Report{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   generatedAt,
		InputDir:      abs,
		Total:         len(rows),
		Passed:        passed,
		Failed:        len(rows) - passed,
		Rows:          rows,
	}, nil
}

func readLane(inputDir, rel string, owners map[string]string) (Row, error) {
	content, err := os.ReadFile(filepath.Join(inputDir, filepath.FromSlash(rel)))
	if err != nil {
		return Row{}, fmt.Errorf("reading lane result %s: %w", rel, err)
	}
	var raw laneFile
	if err := json.Unmarshal(content, &raw); err != nil {
		return Row{}, fmt.Errorf("parsing lane result %s: %w", rel, err)
	}

	lane := raw.Lane
	if lane == "" {
		lane = strings.TrimPrefix(strings.TrimSuffix(path.Base(rel), ".json"), laneStem)
	}
	status := raw.Status
	if status == "" {
		status = "unknown"
	}
	exitCode := 1
	if raw.ExitCode != nil {
		exitCode = *raw.ExitCode
	}

	return Row{
		Lane:            lane,
		Status:          status,
		ExitCode:        exitCode,
		DurationSeconds: round3(raw.DurationSeconds),
		Command:         raw.Command,
		Owner:           owners[lane],
		Source:          rel,
	}, nil
}

// Markdown renders the human-readable companion of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Nightly Feature Matrix Summary\n\n")
	fmt.Fprintf(&b, "- Generated at: `%s`\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Total lanes: `%d`\n", r.Total)
	fmt.Fprintf(&b, "- Passed: `%d`\n", r.Passed)
	fmt.Fprintf(&b, "- Failed: `%d`\n\n", r.Failed)

	if len(r.Rows) == 0 {
		b.WriteString("No nightly lane result files found.\n")
		return b.String()
	}

	b.WriteString("| Lane | Status | Exit | Duration (s) | Owner | Command |\n")
	b.WriteString("| --- | --- | ---:| ---:| --- | --- |\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| `%s` | `%s` | %d | %s | `%s` | `%s` |\n",
			row.Lane, row.Status, row.ExitCode,
			formatDuration(row.DurationSeconds), ownerOrUnassigned(row.Owner), row.Command)
	}
	b.WriteString("\n")

	var failed []Row
	for _, row := range r.Rows {
		if row.Status != statusSuccess {
			failed = append(failed, row)
		}
	}
	if len(failed) > 0 {
		b.WriteString("## Failed Lanes\n")
		for _, row := range failed {
			fmt.Fprintf(&b, "- `%s` failed (exit=%d) owner=`%s`\n",
				row.Lane, row.ExitCode, ownerOrUnassigned(row.Owner))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func ownerOrUnassigned(owner string) string {
	if owner == "" {
		return "unassigned"
	}
	return owner
}

func formatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
