// errors.go - Error taxonomy for wrapper invocations
//
// Every failure mode of a request maps to exactly one of these types:
// resolution, spawn, pipe IO, nonzero exit, or empty result. Callers match
// with errors.As to decide how much diagnostic context to surface.

package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no wrapper binary exists at the checked locations
	ErrNotFound = errors.New("codeagent-wrapper not found")
	// ErrNotExecutable means a wrapper binary was found but cannot be executed
	ErrNotExecutable = errors.New("codeagent-wrapper is not executable")
)

// ResolutionError reports a failure to locate a usable wrapper binary.
// Path is the explicit path for configuration errors and empty for search
// misses. Reason is ErrNotFound or ErrNotExecutable.
type ResolutionError struct {
	Path   string
	Reason error
}

func (e *ResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%v: %s", e.Reason, e.Path)
	}
	return e.Reason.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Reason }

// SpawnError reports that the OS failed to start the wrapper process
type SpawnError struct {
	Bin string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start codeagent-wrapper: %v (bin=%s)", e.Err, e.Bin)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IoError reports a stdin write or process wait failure
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("codeagent-wrapper %s failed: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// NonZeroExitError reports a wrapper run that completed with a failure code.
// The tails are bounded snippets, never the full buffers.
type NonZeroExitError struct {
	ExitCode   int
	StderrTail string
	StdoutTail string
}

func (e *NonZeroExitError) Error() string {
	return fmt.Sprintf("codeagent-wrapper exited with code %d. stderr: %s", e.ExitCode, e.StderrTail)
}

// EmptyResultError reports a run that exited cleanly but produced no usable
// message after trailer parsing
type EmptyResultError struct {
	StderrTail string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("codeagent-wrapper returned no usable message. stderr: %s", e.StderrTail)
}
