// Package orchestrator runs chat tasks against the codeagent-wrapper CLI.
//
// orchestrator.go - Composition root for one streaming request
//
// Submit accepts a task and returns a correlation id immediately; the work
// proceeds on a background goroutine through a fixed pipeline:
//
//	select backend -> resolve executable -> run process -> stream result
//
// The subprocess wait is the only long block and happens entirely off the
// accepting goroutine with no shared lock held. Every request terminates in
// exactly one observable outcome: a final success event or a final error
// event, except when the caller cancels, in which case streaming stops
// silently and the child is left to run to completion.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sableworks/codeagentd/internal/agent"
	"github.com/sableworks/codeagentd/internal/logger"
	"github.com/sableworks/codeagentd/internal/metrics"
)

// taskState tracks where a request is in its lifecycle
type taskState string

const (
	stateBackendResolved    taskState = "backend_resolved"
	stateExecutableResolved taskState = "executable_resolved"
	stateProcessRunning     taskState = "process_running"
	stateTrailerParsed      taskState = "trailer_parsed"
	stateStreaming          taskState = "streaming"
	stateDone               taskState = "done"
	stateErrored            taskState = "errored"
)

// Settings is the wrapper configuration shared by all requests. A snapshot
// is copied into each request's RunSpec under a briefly held lock, so
// concurrent settings updates never race a running task.
type Settings struct {
	Backend            string // explicit backend override, usually empty
	BinaryPath         string // explicit wrapper path, empty means search
	Workdir            string // default working directory, "." when empty
	SkipPermissions    bool
	TimeoutMs          int64
	MaxParallelWorkers int
	CurrentModel       string // active model name, used for backend fallback
}

// TaskRequest describes one submitted task
type TaskRequest struct {
	Task            string   // required task text
	TaskID          string   // optional caller-supplied correlation id
	SessionID       string   // chat session to append the exchange to, optional
	BackendHint     string   // e.g. "claude-cli", optional
	ResumeSessionID string   // wrapper continuation id, optional
	CodexModel      string   // model hint for the codex backend, optional
	Parallel        bool     // wrapper parallel mode
	ContextFiles    []string // forwarded as supplementary text
}

// TranscriptAppender is the append-only chat transcript collaborator.
// The orchestrator only produces the (message, id) pair; storage layout
// belongs to the implementer.
type TranscriptAppender interface {
	AppendExchange(sessionID, backend, task, message, agentSessionID, taskID string) error
}

// ErrEmptyTask is returned by Submit for blank task text
var ErrEmptyTask = errors.New("task text is empty")

// Orchestrator owns the cancellation registry and the per-request pipeline
type Orchestrator struct {
	mu       sync.Mutex
	settings Settings

	sink        EventSink
	registry    *Registry
	transcripts TranscriptAppender // may be nil
	streamDelay time.Duration
}

// New creates an orchestrator publishing to sink. transcripts may be nil
// when no persistence collaborator is wired.
func New(settings Settings, sink EventSink, transcripts TranscriptAppender) *Orchestrator {
	return &Orchestrator{
		settings:    settings,
		sink:        sink,
		registry:    NewRegistry(),
		transcripts: transcripts,
		streamDelay: defaultStreamDelay,
	}
}

// UpdateSettings replaces the shared wrapper settings
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

// GetSettings returns a copy of the current settings
func (o *Orchestrator) GetSettings() Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// SetCurrentModel updates the active model used for backend fallback
func (o *Orchestrator) SetCurrentModel(model string) {
	o.mu.Lock()
	o.settings.CurrentModel = model
	o.mu.Unlock()
}

// Submit validates the request, registers a cancellable background task,
// and returns its correlation id without blocking on the wrapper.
func (o *Orchestrator) Submit(req TaskRequest) (string, error) {
	if strings.TrimSpace(req.Task) == "" {
		return "", ErrEmptyTask
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = "task_" + uuid.New().String()[:8]
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.registry.Insert(taskID, cancel)
	metrics.RecordTaskStart()

	go o.run(ctx, taskID, req)

	return taskID, nil
}

// Cancel stops streaming for an in-flight task. The wrapper child is not
// killed; it runs to completion and only its remaining output is discarded.
// Returns false when the task is unknown or already finished.
func (o *Orchestrator) Cancel(taskID string) bool {
	return o.registry.Cancel(taskID)
}

// ActiveTasks returns the number of in-flight tasks
func (o *Orchestrator) ActiveTasks() int {
	return o.registry.Len()
}

// Done returns a channel closed once the task's pipeline has fully wound
// down, subprocess included. Unknown or already finished ids get an
// already-closed channel. Lets callers such as the schedule runner block on
// task completion without polling.
func (o *Orchestrator) Done(taskID string) <-chan struct{} {
	return o.registry.Done(taskID)
}

// run drives one request through the pipeline. Always terminates the
// registry entry and the task metrics, whatever the outcome.
func (o *Orchestrator) run(ctx context.Context, taskID string, req TaskRequest) {
	start := time.Now()
	outcome := "success"
	backendLabel := ""

	defer func() {
		o.registry.Remove(taskID)
		metrics.RecordTaskEnd(backendLabel, outcome, time.Since(start).Seconds())
	}()

	// Copy shared settings under the lock, release before any blocking work
	settings := o.GetSettings()

	backend := agent.SelectBackend(settings.Backend, req.BackendHint, settings.CurrentModel)
	backendLabel = string(backend)
	o.setState(taskID, stateBackendResolved)

	bin, err := agent.ResolveWrapper(settings.BinaryPath)
	if err != nil {
		outcome = "error"
		o.fail(taskID, err)
		return
	}
	o.setState(taskID, stateExecutableResolved)

	workdir := settings.Workdir
	if workdir == "" {
		workdir = "."
	}

	spec := agent.RunSpec{
		Task:               buildTaskText(req.Task, req.ContextFiles),
		Backend:            backend,
		Workdir:            workdir,
		SkipPermissions:    settings.SkipPermissions,
		Parallel:           req.Parallel,
		TimeoutMs:          settings.TimeoutMs,
		MaxParallelWorkers: settings.MaxParallelWorkers,
		ResumeSessionID:    req.ResumeSessionID,
		CodexModel:         req.CodexModel,
	}

	o.setState(taskID, stateProcessRunning)
	result, err := agent.Run(bin, spec)
	if err != nil {
		outcome = "error"
		o.fail(taskID, err)
		return
	}
	o.setState(taskID, stateTrailerParsed)

	o.setState(taskID, stateStreaming)
	if err := streamMessage(ctx, o.sink, taskID, result.Message, result.SessionID, o.streamDelay); err != nil {
		// Cancelled mid-stream: stop silently, no final event
		outcome = "cancelled"
		logger.Info("task %s cancelled after partial delivery", taskID)
		o.setState(taskID, stateDone)
		return
	}

	if o.transcripts != nil && req.SessionID != "" {
		if err := o.transcripts.AppendExchange(req.SessionID, backendLabel, req.Task, result.Message, result.SessionID, taskID); err != nil {
			logger.Error("task %s: appending transcript to session %s: %v", taskID, req.SessionID, err)
		}
	}

	o.setState(taskID, stateDone)
}

// fail reports a terminal error as the request's single final event
func (o *Orchestrator) fail(taskID string, err error) {
	logger.Error("task %s failed: %v", taskID, err)
	emitErrorEvent(o.sink, taskID, err.Error())
	o.setState(taskID, stateErrored)
}

func (o *Orchestrator) setState(taskID string, s taskState) {
	logger.Printf("task %s -> %s", taskID, s)
}

// buildTaskText appends the optional context file list as supplementary
// informational text after the task body
func buildTaskText(task string, contextFiles []string) string {
	if len(contextFiles) == 0 {
		return task
	}
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nContext files:\n")
	for _, f := range contextFiles {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}
