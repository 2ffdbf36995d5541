package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/fsops"
)

func fsErrorStatus(err error) int {
	switch {
	case errors.Is(err, fsops.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// FsList lists a directory, directories first
func (h *Handler) FsList(c echo.Context) error {
	entries, err := h.fs.List(c.QueryParam("path"))
	if err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// FsRead returns file contents, capped by the configured read limit
func (h *Handler) FsRead(c echo.Context) error {
	data, err := h.fs.Read(c.QueryParam("path"))
	if err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

// FsWrite replaces file contents
func (h *Handler) FsWrite(c echo.Context) error {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	if err := h.fs.Write(req.Path, []byte(req.Content)); err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// FsCreate creates an empty file or a directory
func (h *Handler) FsCreate(c echo.Context) error {
	var req struct {
		Path  string `json:"path"`
		IsDir bool   `json:"is_dir"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	if err := h.fs.Create(req.Path, req.IsDir); err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusCreated)
}

// FsRename moves a file or directory
func (h *Handler) FsRename(c echo.Context) error {
	var req struct {
		OldPath string `json:"old_path"`
		NewPath string `json:"new_path"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	if err := h.fs.Rename(req.OldPath, req.NewPath); err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// FsDelete removes a file or directory tree
func (h *Handler) FsDelete(c echo.Context) error {
	if err := h.fs.Delete(c.QueryParam("path")); err != nil {
		return errorJSON(c, fsErrorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
