package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon is a local, single-user service
		return true
	},
}

// HandleWebSocket streams the events of one task to the client. The task id
// is passed as the task_id query parameter; the stream ends when the task
// emits its final event or the client disconnects.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	taskID := c.QueryParam("task_id")
	if taskID == "" {
		return errorJSON(c, http.StatusBadRequest, "task_id query parameter required")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket: %v", err)
		return err
	}

	sub, cancel := h.hub.Subscribe(taskID)
	done := make(chan struct{})

	// Read pump: detect client disconnect, discard inbound frames
	go func() {
		defer close(done)
		_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Error("WebSocket read error for task %s: %v", taskID, err)
				}
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			_ = ws.Close()
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-sub:
				if !ok {
					return
				}
				_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := ws.WriteJSON(event); err != nil {
					logger.Error("Failed to write event for task %s: %v", taskID, err)
					return
				}
				if event.Final {
					_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
					_ = ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return nil
}
