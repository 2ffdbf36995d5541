// registry.go - Cancellation registry for in-flight streaming tasks
//
// Shared mutable state: a map from correlation id to the cancel handle and
// completion channel of the background task streaming under that id. All
// mutation goes through this type; entries are inserted when a task starts
// and removed when it finishes, so a lookup miss just means the task
// already completed.

package orchestrator

import (
	"context"
	"sync"
)

// taskEntry is one in-flight task's control state
type taskEntry struct {
	cancel context.CancelFunc
	done   chan struct{} // closed on Remove
}

// Registry tracks cancellable in-flight tasks by correlation id
type Registry struct {
	mu      sync.Mutex
	entries map[string]*taskEntry
}

// closedDone is handed out for ids that are unknown or already finished
var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*taskEntry),
	}
}

// Insert registers a running task's cancel handle
func (r *Registry) Insert(taskID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[taskID] = &taskEntry{cancel: cancel, done: make(chan struct{})}
}

// Remove drops a task's entry, releases its context and closes its done
// channel. Called by the owning task on completion; safe to call for ids
// that are already gone.
func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	entry, ok := r.entries[taskID]
	delete(r.entries, taskID)
	r.mu.Unlock()

	if ok {
		entry.cancel()
		close(entry.done)
	}
}

// Cancel signals the task registered under taskID to stop streaming.
// Returns false when no such task is in flight. The entry itself is removed
// by the owning task as it winds down.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	entry, ok := r.entries[taskID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	entry.cancel()
	return true
}

// Done returns a channel closed once the task under taskID has fully wound
// down. Unknown or already finished ids get an already-closed channel.
func (r *Registry) Done(taskID string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[taskID]; ok {
		return entry.done
	}
	return closedDone
}

// Len returns the number of in-flight tasks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
