// Package events provides in-process fanout of task stream events.
//
// The hub routes events by task id (the correlation id of one streaming
// request) to any number of subscribers. Each task's events are published
// from a single goroutine, so per-task ordering is preserved end to end as
// long as subscriber channels are drained in order. A subscriber that stops
// draining loses events rather than blocking the producer.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sableworks/codeagentd/internal/logger"
	"github.com/sableworks/codeagentd/internal/metrics"
)

// StreamEvent is one unit of task output delivered to subscribers
type StreamEvent struct {
	TaskID    string `json:"task_id"`
	Delta     string `json:"delta"`
	Final     bool   `json:"final"`
	SessionID string `json:"session_id,omitempty"` // set only on the final event
	IsError   bool   `json:"is_error,omitempty"`
	Timestamp int64  `json:"ts"`
}

// subscriberBuffer is the per-subscriber channel depth. Full buffers drop.
const subscriberBuffer = 256

// Hub fans StreamEvents out to per-task subscribers
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan StreamEvent // task id -> sub id -> channel
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]chan StreamEvent),
	}
}

// Subscribe registers interest in one task id. The returned channel receives
// that task's events in publish order; the cancel func must be called when
// the subscriber is done.
func (h *Hub) Subscribe(taskID string) (<-chan StreamEvent, func()) {
	ch := make(chan StreamEvent, subscriberBuffer)
	subID := uuid.New().String()

	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[string]chan StreamEvent)
	}
	h.subs[taskID][subID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subs[taskID]; ok {
			if _, ok := subs[subID]; ok {
				delete(subs, subID)
				close(ch)
				if len(subs) == 0 {
					delete(h.subs, taskID)
				}
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers an event to every subscriber of its task id. Delivery is
// non-blocking: a full subscriber buffer drops the event and counts it.
func (h *Hub) Publish(ev StreamEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	metrics.RecordEventEmitted()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for subID, ch := range h.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
			logger.Error("event hub: subscriber %s buffer full, dropping event for task %s", subID, ev.TaskID)
			metrics.RecordEventDrop(ev.TaskID)
		}
	}
}

// SubscriberCount returns the number of subscribers for a task id
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[taskID])
}
