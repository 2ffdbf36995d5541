package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sableworks/codeagentd/internal/schedule"
)

func scheduleErrorStatus(err error) int {
	switch {
	case errors.Is(err, schedule.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrInvalidCron):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListSchedules returns schedules, optionally filtered by enabled state
func (h *Handler) ListSchedules(c echo.Context) error {
	var filter *schedule.ListFilter
	if raw := c.QueryParam("enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid enabled filter")
		}
		filter = &schedule.ListFilter{Enabled: &enabled}
	}

	schedules, err := h.schedules.List(filter)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if schedules == nil {
		schedules = []*schedule.Schedule{}
	}
	return c.JSON(http.StatusOK, schedules)
}

// CreateSchedule registers a new scheduled prompt
func (h *Handler) CreateSchedule(c echo.Context) error {
	var sched schedule.Schedule
	if err := c.Bind(&sched); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if sched.Name == "" || sched.CronExpr == "" || sched.Prompt == "" {
		return errorJSON(c, http.StatusBadRequest, "name, cron_expr and prompt are required")
	}
	if sched.OverlapBehavior != "" && !schedule.IsValidOverlapBehavior(sched.OverlapBehavior) {
		return errorJSON(c, http.StatusBadRequest, "invalid overlap_behavior")
	}

	sched.ID = ""
	if err := h.schedules.Create(&sched); err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, sched)
}

// GetSchedule returns one schedule
func (h *Handler) GetSchedule(c echo.Context) error {
	sched, err := h.schedules.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

// UpdateSchedule applies partial updates to a schedule
func (h *Handler) UpdateSchedule(c echo.Context) error {
	var update schedule.ScheduleUpdate
	if err := c.Bind(&update); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if update.OverlapBehavior != nil && !schedule.IsValidOverlapBehavior(*update.OverlapBehavior) {
		return errorJSON(c, http.StatusBadRequest, "invalid overlap_behavior")
	}

	id := c.Param("id")
	if err := h.schedules.Update(id, &update); err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}

	sched, err := h.schedules.Get(id)
	if err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

// DeleteSchedule removes a schedule and its execution history
func (h *Handler) DeleteSchedule(c echo.Context) error {
	if err := h.schedules.Delete(c.Param("id")); err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// TriggerSchedule fires a schedule immediately
func (h *Handler) TriggerSchedule(c echo.Context) error {
	sched, err := h.schedules.Get(c.Param("id"))
	if err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}

	taskID, err := h.schedRunner.TriggerNow(sched)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID})
}

// ListExecutions returns the recent firings of a schedule
func (h *Handler) ListExecutions(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.schedules.Get(id); err != nil {
		return errorJSON(c, scheduleErrorStatus(err), err.Error())
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	execs, err := h.schedules.ListExecutions(id, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if execs == nil {
		execs = []*schedule.Execution{}
	}
	return c.JSON(http.StatusOK, execs)
}
