package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/config"
)

// AllSettings returns every stored key/value setting
func (h *Handler) AllSettings(c echo.Context) error {
	settings, err := h.appStore.AllSettings()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, settings)
}

// SetSetting stores one setting
func (h *Handler) SetSetting(c echo.Context) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	key := c.Param("key")
	if err := h.appStore.SetSetting(key, req.Value); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{key: req.Value})
}

// DeleteSetting removes one setting
func (h *Handler) DeleteSetting(c echo.Context) error {
	if err := h.appStore.DeleteSetting(c.Param("key")); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetSettings removes all stored settings
func (h *Handler) ResetSettings(c echo.Context) error {
	if err := h.appStore.ResetSettings(); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListModels returns the configured model registry
func (h *Handler) ListModels(c echo.Context) error {
	if h.models == nil {
		return c.JSON(http.StatusOK, []config.ModelInfo{})
	}
	infos := h.models.ListModels()
	if infos == nil {
		infos = []config.ModelInfo{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models":  infos,
		"default": h.models.Default,
	})
}

// SelectModel sets the model used for subsequent tasks
func (h *Handler) SelectModel(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	resolved := req.Name
	if h.models != nil {
		if req.Name != "" && !h.models.HasModel(req.Name) {
			return errorJSON(c, http.StatusNotFound, "unknown model: "+req.Name)
		}
		resolved = h.models.ResolveModel(req.Name)
	}

	h.orch.SetCurrentModel(resolved)
	return c.JSON(http.StatusOK, map[string]string{"model": resolved})
}
