package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}
	if tag := TagFromContext(ctx); tag != "" {
		fields = append(fields, zap.String("tag", tag))
	}

	return fields
}

// Context key types
type runIDCtxKey struct{}
type tagCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateID validates a run ID.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// RunIDFromContext extracts the per-invocation run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(runIDCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRunID adds the run ID to context.
// Panics if runID is empty or contains invalid characters; run IDs are
// generated, never user input.
func WithRunID(ctx context.Context, runID string) context.Context {
	if err := validateID(runID, "runID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, runIDCtxKey{}, runID)
}

// TagFromContext extracts the candidate tag from context.
func TagFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tagCtxKey{}).(string); ok {
		return t
	}
	return ""
}

// WithTag adds the candidate tag under evaluation to context. Tags are
// user input and stored as-is; empty tags are dropped at field
// extraction.
func WithTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, tagCtxKey{}, tag)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
