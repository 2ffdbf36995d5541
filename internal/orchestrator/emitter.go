// emitter.go - Re-emits a complete message as an incremental event stream
//
// The wrapper produces its whole answer at once; the UI expects progressive
// delivery. The emitter walks the message by rune, flushing a StreamEvent
// every streamChunkRunes characters with a short cosmetic delay in between.
// Only the last event carries the final flag and the continuation id.

package orchestrator

import (
	"context"
	"time"

	"github.com/sableworks/codeagentd/internal/events"
)

// streamChunkRunes is the flush threshold, counted in Unicode code points
const streamChunkRunes = 32

// defaultStreamDelay paces chunk delivery. Cosmetic only; ordering and
// finality must hold for any delay including zero.
const defaultStreamDelay = 30 * time.Millisecond

// EventSink receives stream events for delivery to subscribers
type EventSink interface {
	Publish(events.StreamEvent)
}

// streamMessage chunks message into ordered StreamEvents for taskID. An
// empty message still produces exactly one final event. When ctx is
// cancelled before the first flush or between flushes, emission stops
// immediately and no final event is sent; the context error is returned so
// the caller can tell cancellation from completion.
func streamMessage(ctx context.Context, sink EventSink, taskID, message, sessionID string, delay time.Duration) error {
	// A cancel that landed while the wrapper was still running suppresses
	// the whole stream, including the single event of a short message
	if err := ctx.Err(); err != nil {
		return err
	}

	runes := []rune(message)

	if len(runes) == 0 {
		sink.Publish(events.StreamEvent{
			TaskID:    taskID,
			Final:     true,
			SessionID: sessionID,
		})
		return nil
	}

	for start := 0; start < len(runes); start += streamChunkRunes {
		if start > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		end := start + streamChunkRunes
		if end > len(runes) {
			end = len(runes)
		}

		ev := events.StreamEvent{
			TaskID: taskID,
			Delta:  string(runes[start:end]),
		}
		if end == len(runes) {
			ev.Final = true
			ev.SessionID = sessionID
		}
		sink.Publish(ev)
	}

	return nil
}

// emitErrorEvent delivers the single, immediately-final event for a request
// that failed before or during the wrapper run
func emitErrorEvent(sink EventSink, taskID, message string) {
	sink.Publish(events.StreamEvent{
		TaskID:  taskID,
		Delta:   message,
		Final:   true,
		IsError: true,
	})
}
