package main

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes. Pipelines branch on these, so gate failures are
// kept distinct from usage mistakes and from infrastructure faults.
const (
	exitOK         = 0
	exitUnexpected = 1
	exitUsage      = 2
	exitGate       = 3
)

// exitError carries a process exit code through cobra's RunE chain so
// main can map the failure class without string matching.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// usageErrorf reports invalid invocations: bad flag values, unreadable
// policy documents, malformed tags.
func usageErrorf(format string, args ...any) error {
	return &exitError{code: exitUsage, msg: fmt.Sprintf(format, args...)}
}

// unexpectedErrorf reports faults the caller cannot correct by fixing
// the invocation, such as failed report writes.
func unexpectedErrorf(format string, args ...any) error {
	return &exitError{code: exitUnexpected, msg: fmt.Sprintf(format, args...)}
}

// gateFailuref reports a gate decision that the fail flag turned into a
// hard stop.
func gateFailuref(format string, args ...any) error {
	return &exitError{code: exitGate, msg: fmt.Sprintf(format, args...)}
}

// violationFailure renders a gate failure as a header line followed by
// one bullet per finding.
func violationFailure(header string, violations []string) error {
	var b strings.Builder
	b.WriteString(header)
	for _, v := range violations {
		b.WriteString("\n- ")
		b.WriteString(v)
	}
	return &exitError{code: exitGate, msg: b.String()}
}

// exitCode maps an error returned by Execute to a process exit code.
// Errors without an explicit code come from cobra itself (unknown
// flags, missing required flags) and count as usage errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitUsage
}
