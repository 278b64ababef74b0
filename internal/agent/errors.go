package agent

import (
	"fmt"
)

// PreconditionError means a tool ran before its dependency produced a result.
// Always fatal to that tool call, surfaced to the model as a tool error,
// never silently defaulted.
type PreconditionError struct {
	Tool    string
	Missing string
	Index   int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: no %s result for workout %d, run the %s step first", e.Tool, e.Missing, e.Index, e.Missing)
}

// ClassificationFailure records a discipline or activity classification that
// errored and was recovered with a conservative default. Logged, never fatal.
type ClassificationFailure struct {
	Stage string
	Err   error
}

func (e *ClassificationFailure) Error() string {
	return fmt.Sprintf("classification failed (%s), using default: %v", e.Stage, e.Err)
}

func (e *ClassificationFailure) Unwrap() error { return e.Err }
