package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/store"
)

// ListWorkspaces returns all registered workspaces
func (h *Handler) ListWorkspaces(c echo.Context) error {
	workspaces, err := h.appStore.ListWorkspaces()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if workspaces == nil {
		workspaces = []*store.Workspace{}
	}
	return c.JSON(http.StatusOK, workspaces)
}

// CreateWorkspace registers a workspace root
func (h *Handler) CreateWorkspace(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Path == "" {
		return errorJSON(c, http.StatusBadRequest, "name and path are required")
	}

	ws, err := h.appStore.CreateWorkspace(req.Name, req.Path)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, ws)
}

// GetWorkspace returns one workspace
func (h *Handler) GetWorkspace(c echo.Context) error {
	ws, err := h.appStore.GetWorkspace(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			return errorJSON(c, http.StatusNotFound, "workspace not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ws)
}

// DeleteWorkspace removes a workspace registration
func (h *Handler) DeleteWorkspace(c echo.Context) error {
	if err := h.appStore.DeleteWorkspace(c.Param("id")); err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			return errorJSON(c, http.StatusNotFound, "workspace not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRecentDirs returns recently used directories, most recent first
func (h *Handler) ListRecentDirs(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	dirs, err := h.appStore.ListRecentDirs(limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if dirs == nil {
		dirs = []*store.RecentDirectory{}
	}
	return c.JSON(http.StatusOK, dirs)
}

// TouchRecentDir records a directory as most recently used
func (h *Handler) TouchRecentDir(c echo.Context) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return errorJSON(c, http.StatusBadRequest, "path is required")
	}

	if err := h.appStore.TouchRecentDir(req.Path); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
