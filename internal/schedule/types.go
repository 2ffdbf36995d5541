package schedule

import (
	"time"
)

// OverlapBehavior defines what to do if a previous run is still active
type OverlapBehavior string

const (
	OverlapSkip     OverlapBehavior = "skip"     // Don't start if previous still running
	OverlapParallel OverlapBehavior = "parallel" // Allow concurrent execution
)

// Schedule represents a prompt submitted to the orchestrator on a cron schedule
type Schedule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CronExpr        string          `json:"cron_expr"` // Standard 5-field cron expression
	Prompt          string          `json:"prompt"`    // Task text submitted on each firing
	BackendHint     string          `json:"backend_hint,omitempty"`
	Workdir         string          `json:"workdir,omitempty"`
	SessionID       string          `json:"session_id,omitempty"` // Chat session receiving the exchanges
	Enabled         bool            `json:"enabled"`
	OverlapBehavior OverlapBehavior `json:"overlap_behavior"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	LastRunAt       *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time      `json:"next_run_at,omitempty"`
}

// ExecutionStatus represents the outcome of a schedule firing
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// Execution represents a single firing of a scheduled prompt
type Execution struct {
	ID         string          `json:"id"`
	ScheduleID string          `json:"schedule_id"`
	TaskID     string          `json:"task_id,omitempty"` // Correlation id of the submitted task
	ExecutedAt time.Time       `json:"executed_at"`
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
}

// ScheduleUpdate contains optional fields for updating a schedule
type ScheduleUpdate struct {
	Name            *string          `json:"name,omitempty"`
	CronExpr        *string          `json:"cron_expr,omitempty"`
	Prompt          *string          `json:"prompt,omitempty"`
	BackendHint     *string          `json:"backend_hint,omitempty"`
	Workdir         *string          `json:"workdir,omitempty"`
	SessionID       *string          `json:"session_id,omitempty"`
	Enabled         *bool            `json:"enabled,omitempty"`
	OverlapBehavior *OverlapBehavior `json:"overlap_behavior,omitempty"`
}

// ListFilter contains optional filters for listing schedules
type ListFilter struct {
	Enabled *bool // Filter by enabled status
}

// IsValidOverlapBehavior checks if the overlap behavior is valid
func IsValidOverlapBehavior(b OverlapBehavior) bool {
	return b == OverlapSkip || b == OverlapParallel
}
