// Package api provides the HTTP and WebSocket surface of codeagentd.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sableworks/codeagentd/internal/config"
	"github.com/sableworks/codeagentd/internal/events"
	"github.com/sableworks/codeagentd/internal/fsops"
	"github.com/sableworks/codeagentd/internal/metrics"
	"github.com/sableworks/codeagentd/internal/orchestrator"
	"github.com/sableworks/codeagentd/internal/ratelimit"
	"github.com/sableworks/codeagentd/internal/schedule"
	"github.com/sableworks/codeagentd/internal/session"
	"github.com/sableworks/codeagentd/internal/store"
)

// Handler handles HTTP requests
type Handler struct {
	orch        *orchestrator.Orchestrator
	hub         *events.Hub
	sessions    *session.Store
	appStore    *store.Store
	schedules   *schedule.Store
	schedRunner *schedule.Runner
	models      *config.ModelRegistry
	fs          *fsops.Ops
}

// NewHandler creates a new handler
func NewHandler(
	orch *orchestrator.Orchestrator,
	hub *events.Hub,
	sessions *session.Store,
	appStore *store.Store,
	schedules *schedule.Store,
	schedRunner *schedule.Runner,
	models *config.ModelRegistry,
	fs *fsops.Ops,
) *Handler {
	return &Handler{
		orch:        orch,
		hub:         hub,
		sessions:    sessions,
		appStore:    appStore,
		schedules:   schedules,
		schedRunner: schedRunner,
		models:      models,
		fs:          fs,
	}
}

// NewServer builds the echo server with middleware and all routes registered
func NewServer(h *Handler, limiter *ratelimit.RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	if limiter != nil {
		e.Use(ratelimit.Middleware(limiter))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.Use(echo.WrapMiddleware(metrics.Middleware))

	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers routes with the echo server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Task execution
	e.POST("/api/tasks", h.SubmitTask)
	e.POST("/api/tasks/:id/cancel", h.CancelTask)
	e.GET("/ws", h.HandleWebSocket)

	// Chat sessions
	e.GET("/api/sessions", h.ListSessions)
	e.GET("/api/sessions/:id", h.GetSession)
	e.DELETE("/api/sessions/:id", h.DeleteSession)
	e.PUT("/api/sessions/:id/name", h.RenameSession)

	// Settings and models
	e.GET("/api/settings", h.AllSettings)
	e.PUT("/api/settings/:key", h.SetSetting)
	e.DELETE("/api/settings/:key", h.DeleteSetting)
	e.POST("/api/settings/reset", h.ResetSettings)
	e.GET("/api/models", h.ListModels)
	e.POST("/api/models/select", h.SelectModel)

	// Workspaces and recent directories
	e.GET("/api/workspaces", h.ListWorkspaces)
	e.POST("/api/workspaces", h.CreateWorkspace)
	e.GET("/api/workspaces/:id", h.GetWorkspace)
	e.DELETE("/api/workspaces/:id", h.DeleteWorkspace)
	e.GET("/api/recent-dirs", h.ListRecentDirs)
	e.POST("/api/recent-dirs", h.TouchRecentDir)

	// File browser
	e.GET("/api/fs/list", h.FsList)
	e.GET("/api/fs/read", h.FsRead)
	e.PUT("/api/fs/write", h.FsWrite)
	e.POST("/api/fs/create", h.FsCreate)
	e.POST("/api/fs/rename", h.FsRename)
	e.DELETE("/api/fs", h.FsDelete)

	// Schedules
	e.GET("/api/schedules", h.ListSchedules)
	e.POST("/api/schedules", h.CreateSchedule)
	e.GET("/api/schedules/:id", h.GetSchedule)
	e.PUT("/api/schedules/:id", h.UpdateSchedule)
	e.DELETE("/api/schedules/:id", h.DeleteSchedule)
	e.POST("/api/schedules/:id/trigger", h.TriggerSchedule)
	e.GET("/api/schedules/:id/executions", h.ListExecutions)

	e.GET("/health", h.Health)
}

// Health returns health status
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"active_tasks": h.orch.ActiveTasks(),
	})
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
