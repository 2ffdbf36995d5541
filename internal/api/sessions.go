package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/session"
)

// ListSessions returns session summaries, optionally filtered by workspace
func (h *Handler) ListSessions(c echo.Context) error {
	workspaceID := c.QueryParam("workspace_id")
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	sessions, err := h.sessions.List(workspaceID, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	summaries := make([]*session.Summary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.ToSummary())
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetSession returns a full session including messages
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.sessions.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "session not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}

// DeleteSession removes a session
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "session not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RenameSession sets a session's display name
func (h *Handler) RenameSession(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "name must not be empty")
	}

	sess, err := h.sessions.Rename(c.Param("id"), req.Name)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "session not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess.ToSummary())
}
