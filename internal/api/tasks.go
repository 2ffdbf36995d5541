package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/orchestrator"
)

// SubmitTaskRequest is the body of POST /api/tasks
type SubmitTaskRequest struct {
	Task            string   `json:"task"`
	SessionID       string   `json:"session_id,omitempty"`
	Backend         string   `json:"backend,omitempty"` // Hint, not an override
	ResumeSessionID string   `json:"resume_session_id,omitempty"`
	Model           string   `json:"model,omitempty"`
	Parallel        bool     `json:"parallel,omitempty"`
	ContextFiles    []string `json:"context_files,omitempty"`
}

// SubmitTaskResponse carries the correlation id of the started task
type SubmitTaskResponse struct {
	TaskID string `json:"task_id"`
}

// SubmitTask starts a task and returns its correlation id. Events stream
// over the WebSocket endpoint.
func (h *Handler) SubmitTask(c echo.Context) error {
	var req SubmitTaskRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	model := req.Model
	if h.models != nil && model != "" {
		model = h.models.ResolveModel(model)
	}

	taskID, err := h.orch.Submit(orchestrator.TaskRequest{
		Task:            req.Task,
		SessionID:       req.SessionID,
		BackendHint:     req.Backend,
		ResumeSessionID: req.ResumeSessionID,
		CodexModel:      model,
		Parallel:        req.Parallel,
		ContextFiles:    req.ContextFiles,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyTask) {
			return errorJSON(c, http.StatusBadRequest, "task must not be empty")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, SubmitTaskResponse{TaskID: taskID})
}

// CancelTask signals cancellation of a running task. The subprocess is not
// killed; streaming stops at the next chunk boundary.
func (h *Handler) CancelTask(c echo.Context) error {
	taskID := c.Param("id")
	if !h.orch.Cancel(taskID) {
		return errorJSON(c, http.StatusNotFound, "no running task with id "+taskID)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}
