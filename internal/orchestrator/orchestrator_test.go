package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeWrapper writes an executable shell script standing in for the wrapper
func fakeWrapper(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "codeagent-wrapper")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake wrapper: %v", err)
	}
	return path
}

func newTestOrchestrator(t *testing.T, bin string, sink EventSink) *Orchestrator {
	t.Helper()
	o := New(Settings{BinaryPath: bin, Workdir: t.TempDir()}, sink, nil)
	o.streamDelay = 0
	return o
}

func waitFinal(t *testing.T, sink *captureSink) {
	t.Helper()
	select {
	case <-sink.final:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for final event")
	}
}

func TestEndToEndSuccess(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
printf 'Done.\n---\nSESSION_ID: abc123\n'`)
	sink := newCaptureSink()
	o := newTestOrchestrator(t, bin, sink)

	taskID, err := o.Submit(TaskRequest{Task: "list files", BackendHint: "claude-cli"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if taskID == "" {
		t.Fatal("Submit returned empty correlation id")
	}

	waitFinal(t, sink)

	got := sink.snapshot()
	final := got[len(got)-1]
	if !final.Final {
		t.Fatal("last event is not final")
	}
	if final.IsError {
		t.Fatalf("unexpected error event: %q", final.Delta)
	}
	if final.SessionID != "abc123" {
		t.Errorf("final SessionID = %q, want %q", final.SessionID, "abc123")
	}

	var b strings.Builder
	for _, ev := range got {
		if ev.TaskID != taskID {
			t.Errorf("event carries task id %q, want %q", ev.TaskID, taskID)
		}
		b.WriteString(ev.Delta)
	}
	if b.String() != "Done." {
		t.Errorf("streamed text = %q, want %q", b.String(), "Done.")
	}
}

func TestEndToEndNonZeroExit(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
echo 'permission denied' >&2
exit 1`)
	sink := newCaptureSink()
	o := newTestOrchestrator(t, bin, sink)

	if _, err := o.Submit(TaskRequest{Task: "anything"}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	waitFinal(t, sink)

	got := sink.snapshot()
	if len(got) != 1 {
		t.Fatalf("got %d events, want exactly 1 final error event", len(got))
	}
	ev := got[0]
	if !ev.Final || !ev.IsError {
		t.Fatalf("event = %+v, want final error event", ev)
	}
	if !strings.Contains(ev.Delta, "1") {
		t.Errorf("error text %q does not mention the exit code", ev.Delta)
	}
	if !strings.Contains(ev.Delta, "permission denied") {
		t.Errorf("error text %q has no diagnostic snippet", ev.Delta)
	}
}

func TestEndToEndShortMessage(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
printf 'ab'`)
	sink := newCaptureSink()
	o := newTestOrchestrator(t, bin, sink)

	if _, err := o.Submit(TaskRequest{Task: "anything"}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	waitFinal(t, sink)

	got := sink.snapshot()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Delta != "ab" || !got[0].Final {
		t.Errorf("event = %+v, want single final event %q", got[0], "ab")
	}
}

func TestEndToEndResolutionFailure(t *testing.T) {
	sink := newCaptureSink()
	o := New(Settings{BinaryPath: filepath.Join(t.TempDir(), "missing")}, sink, nil)
	o.streamDelay = 0

	if _, err := o.Submit(TaskRequest{Task: "anything"}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	waitFinal(t, sink)

	got := sink.snapshot()
	if len(got) != 1 || !got[0].IsError {
		t.Fatalf("events = %+v, want exactly one error event", got)
	}
}

func TestSubmitRejectsEmptyTask(t *testing.T) {
	sink := newCaptureSink()
	o := newTestOrchestrator(t, "ignored", sink)

	if _, err := o.Submit(TaskRequest{Task: "   "}); !errors.Is(err, ErrEmptyTask) {
		t.Errorf("error = %v, want ErrEmptyTask", err)
	}
}

func TestCancelStopsStreaming(t *testing.T) {
	// Ten chunks of output with a real inter-chunk delay so the cancel can
	// land mid-stream
	bin := fakeWrapper(t, `cat > /dev/null
printf '`+strings.Repeat("x", 320)+`'`)
	sink := newCaptureSink()
	o := New(Settings{BinaryPath: bin, Workdir: t.TempDir()}, sink, nil)
	o.streamDelay = 50 * time.Millisecond

	taskID, err := o.Submit(TaskRequest{Task: "anything"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	// Wait for the first chunk, then cancel
	deadline := time.After(10 * time.Second)
	for len(sink.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no events before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !o.Cancel(taskID) {
		t.Fatal("Cancel returned false for in-flight task")
	}

	// Give the background task time to wind down, then check invariants
	waitIdle(t, o)
	got := sink.snapshot()
	if len(got) >= 10 {
		t.Errorf("got all %d events despite cancellation", len(got))
	}
	for i, ev := range got {
		if ev.Final {
			t.Errorf("event %d has final flag after cancellation", i)
		}
	}
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for o.ActiveTasks() > 0 {
		select {
		case <-deadline:
			t.Fatal("orchestrator never went idle")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRegistryEntryRemovedOnCompletion(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
printf 'ok'`)
	sink := newCaptureSink()
	o := newTestOrchestrator(t, bin, sink)

	taskID, err := o.Submit(TaskRequest{Task: "anything"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	waitFinal(t, sink)
	waitIdle(t, o)

	if o.Cancel(taskID) {
		t.Error("Cancel returned true after task completed")
	}
}

func TestDoneBlocksUntilTaskCompletes(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
sleep 0.5
printf 'ok'`)
	sink := newCaptureSink()
	o := newTestOrchestrator(t, bin, sink)

	taskID, err := o.Submit(TaskRequest{Task: "anything"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	done := o.Done(taskID)
	select {
	case <-done:
		t.Fatal("Done closed while the wrapper was still running")
	default:
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Done never closed")
	}
	if o.ActiveTasks() != 0 {
		t.Errorf("ActiveTasks = %d after Done", o.ActiveTasks())
	}

	// Finished ids read as already done
	select {
	case <-o.Done(taskID):
	default:
		t.Error("Done for a finished id should be closed")
	}
}

// recordingAppender captures the transcript handoff
type recordingAppender struct {
	sessionID, backend, task, message, agentSessionID, taskID string
	called                                                    chan struct{}
}

func (r *recordingAppender) AppendExchange(sessionID, backend, task, message, agentSessionID, taskID string) error {
	r.sessionID, r.backend, r.task, r.message, r.agentSessionID, r.taskID = sessionID, backend, task, message, agentSessionID, taskID
	close(r.called)
	return nil
}

func TestTranscriptAppendedOnSuccess(t *testing.T) {
	bin := fakeWrapper(t, `cat > /dev/null
printf 'Done.\n---\nSESSION_ID: abc123\n'`)
	sink := newCaptureSink()
	appender := &recordingAppender{called: make(chan struct{})}
	o := New(Settings{BinaryPath: bin, Workdir: t.TempDir()}, sink, appender)
	o.streamDelay = 0

	taskID, err := o.Submit(TaskRequest{Task: "list files", SessionID: "chat-1"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	select {
	case <-appender.called:
	case <-time.After(10 * time.Second):
		t.Fatal("transcript appender never called")
	}

	if appender.sessionID != "chat-1" || appender.message != "Done." ||
		appender.agentSessionID != "abc123" || appender.taskID != taskID {
		t.Errorf("appended exchange = %+v", appender)
	}
}

func TestBuildTaskTextWithContextFiles(t *testing.T) {
	got := buildTaskText("do it", []string{"a.go", "b.go"})
	if !strings.Contains(got, "do it") || !strings.Contains(got, "- a.go") || !strings.Contains(got, "- b.go") {
		t.Errorf("buildTaskText = %q", got)
	}
	if buildTaskText("plain", nil) != "plain" {
		t.Error("no context files should leave the task untouched")
	}
}
