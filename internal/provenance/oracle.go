// Package provenance exposes read-only queries over version-control history
// for the gating engine.
//
// The engine never shells out to a git binary and never mutates the
// repository; everything it needs is behind the Oracle interface so
// decisions can be exercised against deterministic fakes. The production
// implementation (GitOracle) is backed by go-git and operates on the local
// object store, with an optional best-effort fetch to refresh it.
//
// Each capability fails independently. Callers classify failures through
// the exported sentinels: ErrTagNotFound blocks publishing (the provenance
// chain cannot be checked without a commit), ErrUnavailable marks a
// transient infrastructure fault that downgrades the affected check to a
// warning, and ErrFileNotFound reports an absent path without implying
// either.
package provenance

import (
	"context"
	"errors"
)

var (
	// ErrTagNotFound indicates a tag that does not exist or does not
	// ultimately reference a commit.
	ErrTagNotFound = errors.New("tag not found")

	// ErrUnavailable indicates a provenance query that could not be
	// executed, e.g. an unreachable remote or an unresolvable trunk ref.
	ErrUnavailable = errors.New("provenance unavailable")

	// ErrFileNotFound indicates the requested path is absent from the
	// tree at the given ref.
	ErrFileNotFound = errors.New("file not found at ref")
)

// Oracle is the read-only view of repository history consumed by the
// gating engine. Implementations must not cache results across calls:
// provenance can change between queries as tags are pushed.
type Oracle interface {
	// Refresh updates local history from the remote. Best effort: the
	// caller records failures as warnings and proceeds.
	Refresh(ctx context.Context) error

	// Resolve returns the hex commit ID the tag ultimately references,
	// peeling annotated tag objects. Fails with ErrTagNotFound when the
	// tag is missing or does not point at a commit.
	Resolve(ctx context.Context, tagName string) (string, error)

	// IsAncestor reports whether commitSHA is reachable from ref.
	// A false result means the query executed and the commit is not on
	// the ref's history; ErrUnavailable means it could not be answered.
	IsAncestor(ctx context.Context, commitSHA, ref string) (bool, error)

	// ListTags returns all tag names starting with prefix, sorted.
	// An empty result is not an error.
	ListTags(ctx context.Context, prefix string) ([]string, error)

	// ReadFileAtRef returns the content of path in the tree at ref.
	// Fails with ErrFileNotFound when the path is absent at that ref.
	ReadFileAtRef(ctx context.Context, ref, path string) ([]byte, error)
}
