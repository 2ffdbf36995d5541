package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/sableworks/codeagentd/internal/logger"
	"github.com/sableworks/codeagentd/internal/metrics"
)

// ExecutionFunc runs the schedule's prompt and returns the correlation id
// of the task. It must not return before the task has finished: the runner
// counts a schedule as running for exactly as long as this call blocks,
// and the skip overlap policy reads that count. ctx is cancelled when the
// runner stops.
type ExecutionFunc func(ctx context.Context, schedule *Schedule) (string, error)

// Runner manages scheduled prompt execution
type Runner struct {
	store       *Store
	executeFunc ExecutionFunc
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	// Track running executions per schedule for overlap handling
	running   map[string]int // schedule ID -> count of running executions
	runningMu sync.Mutex
}

// NewRunner creates a new schedule runner
func NewRunner(store *Store, executeFunc ExecutionFunc) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:       store,
		executeFunc: executeFunc,
		ctx:         ctx,
		cancel:      cancel,
		running:     make(map[string]int),
	}
}

// Start begins the scheduler loop
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.loop()
	logger.Info("Schedule runner started")
}

// Stop gracefully stops the runner and waits for in-flight executions
func (r *Runner) Stop() {
	logger.Info("Stopping schedule runner...")
	r.cancel()
	r.wg.Wait()
	logger.Info("Schedule runner stopped")
}

// loop runs every minute to check for due schedules
func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	// Run immediately on start
	r.checkDueSchedules()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkDueSchedules()
		}
	}
}

// checkDueSchedules finds and executes due schedules
func (r *Runner) checkDueSchedules() {
	now := time.Now()
	schedules, err := r.store.ListDue(now)
	if err != nil {
		logger.Error("Failed to list due schedules: %v", err)
		return
	}

	for _, schedule := range schedules {
		r.executeSchedule(schedule)
	}
}

// executeSchedule fires a single schedule respecting overlap behavior
func (r *Runner) executeSchedule(schedule *Schedule) {
	r.runningMu.Lock()
	runningCount := r.running[schedule.ID]

	if schedule.OverlapBehavior != OverlapParallel && runningCount > 0 {
		r.runningMu.Unlock()
		logger.Info("Skipping schedule %s (%s): previous execution still running", schedule.ID, schedule.Name)
		r.recordSkipped(schedule, "previous execution still running")
		r.advanceRunTimes(schedule, time.Now())
		return
	}

	r.running[schedule.ID]++
	r.runningMu.Unlock()

	// Execute in goroutine to not block the ticker
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.runningMu.Lock()
			r.running[schedule.ID]--
			if r.running[schedule.ID] == 0 {
				delete(r.running, schedule.ID)
			}
			r.runningMu.Unlock()
		}()

		r.runSchedule(schedule)
	}()
}

// runSchedule submits the prompt and records the outcome
func (r *Runner) runSchedule(schedule *Schedule) {
	now := time.Now()
	logger.Info("Executing schedule %s (%s)", schedule.ID, schedule.Name)

	taskID, err := r.executeFunc(r.ctx, schedule)
	exec := &Execution{
		ScheduleID: schedule.ID,
		TaskID:     taskID,
		ExecutedAt: now,
		Status:     ExecutionSuccess,
	}
	if err != nil {
		logger.Error("Failed to execute schedule %s: %v", schedule.ID, err)
		exec.Status = ExecutionFailed
		exec.Error = err.Error()
	}
	metrics.RecordScheduleRun(string(exec.Status))
	if recErr := r.store.RecordExecution(exec); recErr != nil {
		logger.Error("Failed to record execution for schedule %s: %v", schedule.ID, recErr)
	}

	r.advanceRunTimes(schedule, now)

	if err == nil {
		logger.Info("Schedule %s submitted task %s", schedule.ID, taskID)
	}
}

// advanceRunTimes stamps last_run_at and computes the next firing
func (r *Runner) advanceRunTimes(schedule *Schedule, ranAt time.Time) {
	nextRun, err := NextRun(schedule.CronExpr, ranAt)
	if err != nil {
		logger.Error("Failed to calculate next run for schedule %s: %v", schedule.ID, err)
		return
	}
	if err := r.store.UpdateRunTimes(schedule.ID, ranAt, nextRun); err != nil {
		logger.Error("Failed to update run times for schedule %s: %v", schedule.ID, err)
	}
}

// IsRunning returns the number of running executions for a schedule
func (r *Runner) IsRunning(scheduleID string) int {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	return r.running[scheduleID]
}

// TriggerNow manually fires a schedule immediately, bypassing the cron
// timetable. Run times are not advanced for manual triggers.
func (r *Runner) TriggerNow(schedule *Schedule) (string, error) {
	logger.Info("Manually triggering schedule %s (%s)", schedule.ID, schedule.Name)

	taskID, err := r.executeFunc(r.ctx, schedule)
	exec := &Execution{
		ScheduleID: schedule.ID,
		TaskID:     taskID,
		ExecutedAt: time.Now(),
		Status:     ExecutionSuccess,
	}
	if err != nil {
		exec.Status = ExecutionFailed
		exec.Error = err.Error()
	}
	metrics.RecordScheduleRun(string(exec.Status))
	if recErr := r.store.RecordExecution(exec); recErr != nil {
		logger.Error("Failed to record execution for schedule %s: %v", schedule.ID, recErr)
	}
	return taskID, err
}

// recordSkipped records a skipped firing
func (r *Runner) recordSkipped(schedule *Schedule, reason string) {
	metrics.RecordScheduleRun(string(ExecutionSkipped))
	exec := &Execution{
		ScheduleID: schedule.ID,
		ExecutedAt: time.Now(),
		Status:     ExecutionSkipped,
		Error:      reason,
	}
	if err := r.store.RecordExecution(exec); err != nil {
		logger.Error("Failed to record skipped execution for schedule %s: %v", schedule.ID, err)
	}
}
