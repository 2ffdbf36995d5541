// Package agent provides the codeagent-wrapper invocation layer.
//
// types.go - Shared types for wrapper invocations
//
// This file contains:
// - Backend tag enum for the supported wrapper backends
// - RunSpec describing one wrapper invocation
// - RunResult carrying the parsed outcome
//
// RunSpec is constructed once per request from config plus caller
// options and never mutated afterwards. Concurrent requests each get
// their own spec, so there is no shared configuration state to race on.

package agent

// Backend identifies which wrapper backend to drive
type Backend string

const (
	BackendCodex  Backend = "codex"
	BackendClaude Backend = "claude"
	BackendGemini Backend = "gemini"
)

// Valid reports whether b is one of the known backend tags
func (b Backend) Valid() bool {
	switch b {
	case BackendCodex, BackendClaude, BackendGemini:
		return true
	}
	return false
}

// RunSpec describes a single wrapper invocation
type RunSpec struct {
	// Required
	Task    string  // Task text written to the child's stdin
	Backend Backend // Resolved backend tag, never empty at run time
	Workdir string  // Working directory, also passed as positional arg

	// Behavior flags
	SkipPermissions bool // Pass --dangerously-skip-permissions and env flag
	Parallel        bool // Parallel mode: task config comes entirely via stdin

	// Optional tuning
	TimeoutMs          int64  // Advisory timeout, forwarded as CODEX_TIMEOUT
	MaxParallelWorkers int    // Forwarded as CODEAGENT_MAX_PARALLEL_WORKERS when > 0
	BinaryPath         string // Explicit wrapper path; empty means search
	ResumeSessionID    string // Continuation id for resume mode
	CodexModel         string // Model hint, forwarded only for the codex backend
}

// RunResult is the outcome of one completed wrapper invocation
type RunResult struct {
	Message   string // Parsed message body, trailer stripped
	SessionID string // Continuation id recovered from the trailer, may be empty
	Stdout    string // Raw stdout, lossily decoded
	Stderr    string // Raw stderr, lossily decoded
	ExitCode  int
}
