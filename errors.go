package ginsync

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a malformed top-level configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSource indicates a malformed dataset source.
	ErrInvalidSource = errors.New("invalid source")

	// ErrDuplicateSource indicates two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source name")

	// ErrUnknownSource indicates a requested source name is not configured.
	ErrUnknownSource = errors.New("unknown source")

	// ErrResolve indicates the remote's head revision could not be
	// determined.
	ErrResolve = errors.New("revision resolution failed")

	// ErrHeadNotFound indicates the remote listing carries no resolvable
	// HEAD reference.
	ErrHeadNotFound = errors.New("remote does not advertise HEAD")

	// ErrNoReferences indicates the remote advertises no references at all,
	// typically an empty repository.
	ErrNoReferences = errors.New("remote has no references")

	// ErrFetch indicates dataset retrieval or local materialization failed.
	ErrFetch = errors.New("fetch failed")
)

// PipelineError reports a pipeline failure together with the source name and
// the state the pipeline was in when it failed.
type PipelineError struct {
	// Source is the name of the dataset source.
	Source string
	// State is the pipeline state at the time of failure, not the terminal
	// Fatal state it moved to afterwards.
	State State
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.State, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}
