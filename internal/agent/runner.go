// runner.go - Spawns and drives one codeagent-wrapper invocation
//
// The runner owns the full subprocess lifecycle: build the argument vector
// and environment from the RunSpec, spawn with piped stdio, write the task
// text to stdin and close it, wait for exit, then decode and parse stdout.
// Wait blocks the calling goroutine until the child exits; callers must not
// hold any shared lock across Run.

package agent

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sableworks/codeagentd/internal/logger"
)

// Stderr and stdout diagnostic tails are capped at this many characters
const diagnosticTailChars = 4000

// Run executes the wrapper binary at bin according to spec and returns the
// parsed result. Failures are reported as the typed errors in errors.go.
func Run(bin string, spec RunSpec) (*RunResult, error) {
	args := buildArgs(spec)

	cmd := exec.Command(bin, args...)
	cmd.Dir = spec.Workdir
	cmd.Env = append(os.Environ(), buildEnv(spec)...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &IoError{Op: "stdin pipe", Err: err}
	}

	logger.Info("executing codeagent-wrapper: bin=%s workdir=%s backend=%s parallel=%v skip_permissions=%v",
		bin, spec.Workdir, spec.Backend, spec.Parallel, spec.SkipPermissions)

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, &SpawnError{Bin: bin, Err: err}
	}

	// Close stdin after the write so the child sees end-of-input
	if _, err := io.WriteString(stdin, spec.Task); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, &IoError{Op: "stdin write", Err: err}
	}
	if err := stdin.Close(); err != nil {
		cmd.Wait()
		return nil, &IoError{Op: "stdin close", Err: err}
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, &IoError{Op: "wait", Err: err}
		}
	}

	// Subprocess output is untrusted; invalid UTF-8 must never abort the run
	stdout := strings.ToValidUTF8(stdoutBuf.String(), "�")
	stderr := strings.ToValidUTF8(stderrBuf.String(), "�")

	if exitCode != 0 {
		nzErr := &NonZeroExitError{
			ExitCode:   exitCode,
			StderrTail: tailSnippet(stderr, diagnosticTailChars),
			StdoutTail: tailSnippet(stdout, diagnosticTailChars),
		}
		logger.Error("codeagent-wrapper failed: exit_code=%d stderr_tail=%s", exitCode, nzErr.StderrTail)
		return nil, nzErr
	}

	message, sessionID := ParseStdout(stdout)
	if strings.TrimSpace(message) == "" {
		return nil, &EmptyResultError{StderrTail: tailSnippet(stderr, diagnosticTailChars)}
	}

	return &RunResult{
		Message:   message,
		SessionID: sessionID,
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  exitCode,
	}, nil
}

// buildArgs assembles the wrapper argument vector. Order is load-bearing:
// backend flag, parallel flag, permission flag, then in non-parallel mode the
// optional resume pair, the stdin sentinel, and the workdir. Parallel mode
// forbids extra positional args; the task config arrives entirely via stdin.
func buildArgs(spec RunSpec) []string {
	var args []string

	if backend := strings.TrimSpace(string(spec.Backend)); backend != "" {
		args = append(args, "--backend", backend)
	}

	if spec.Parallel {
		args = append(args, "--parallel")
	}

	if spec.SkipPermissions {
		// Wrapper accepts both --skip-permissions and the dangerous spelling
		args = append(args, "--dangerously-skip-permissions")
	}

	if !spec.Parallel {
		if resume := strings.TrimSpace(spec.ResumeSessionID); resume != "" {
			args = append(args, "resume", resume)
		}

		// Always stdin mode, avoids shell quoting issues with the task text
		args = append(args, "-", spec.Workdir)
	}

	return args
}

// buildEnv returns the extra environment entries for a run. The timeout is
// advisory and enforced by the child. The model hint is only meaningful to
// codex; other backends do not accept the override.
func buildEnv(spec RunSpec) []string {
	var env []string

	if spec.TimeoutMs > 0 {
		env = append(env, "CODEX_TIMEOUT="+strconv.FormatInt(spec.TimeoutMs, 10))
	}
	if spec.SkipPermissions {
		env = append(env, "CODEAGENT_SKIP_PERMISSIONS=1")
	}
	if spec.MaxParallelWorkers > 0 {
		env = append(env, "CODEAGENT_MAX_PARALLEL_WORKERS="+strconv.Itoa(spec.MaxParallelWorkers))
	}
	if spec.Backend == BackendCodex {
		if m := strings.TrimSpace(spec.CodexModel); m != "" {
			env = append(env, "CODEX_MODEL="+m)
		}
	}

	return env
}

// tailSnippet returns at most maxChars characters from the end of s,
// prefixing an ellipsis when truncated. Used to bound diagnostic output in
// errors and logs.
func tailSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	normalized := strings.ReplaceAll(s, "\r\n", "\n")
	runes := []rune(normalized)
	if len(runes) <= maxChars {
		return normalized
	}
	return "…" + string(runes[len(runes)-maxChars:])
}
