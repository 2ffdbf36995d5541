package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sableworks/codeagentd/internal/events"
)

func TestWebSocketStreamsTaskEvents(t *testing.T) {
	h := newTestHandler(t)
	server := httptest.NewServer(NewServer(h, nil))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?task_id=task_ws1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	// Wait for the subscription to land before publishing
	deadline := time.Now().Add(2 * time.Second)
	for h.hub.SubscriberCount("task_ws1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.hub.Publish(events.StreamEvent{TaskID: "task_ws1", Delta: "hello "})
	h.hub.Publish(events.StreamEvent{TaskID: "task_ws1", Delta: "world", Final: true, SessionID: "abc123"})

	var got []events.StreamEvent
	for len(got) < 2 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev events.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", len(got), err)
		}
		got = append(got, ev)
	}

	if got[0].Delta != "hello " || got[0].Final {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Delta != "world" || !got[1].Final || got[1].SessionID != "abc123" {
		t.Errorf("final event = %+v", got[1])
	}

	// Server closes the stream after the final event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected close after final event")
	}
}

func TestWebSocketRequiresTaskID(t *testing.T) {
	h := newTestHandler(t)
	server := httptest.NewServer(NewServer(h, nil))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without task_id should fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebSocketUnsubscribesOnDisconnect(t *testing.T) {
	h := newTestHandler(t)
	server := httptest.NewServer(NewServer(h, nil))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?task_id=task_ws2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.hub.SubscriberCount("task_ws2") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for h.hub.SubscriberCount("task_ws2") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
