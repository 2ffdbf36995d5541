package schedule

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidCron      = errors.New("invalid cron expression")
)

// Store handles schedule persistence. It shares the application database;
// the caller owns the *sql.DB lifecycle.
type Store struct {
	db *sql.DB
}

// NewStore creates a schedule store on an already-open database
func NewStore(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate schedule tables: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cron_expr TEXT NOT NULL,
		prompt TEXT NOT NULL,
		backend_hint TEXT NOT NULL DEFAULT '',
		workdir TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1,
		overlap_behavior TEXT NOT NULL DEFAULT 'skip',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_run_at DATETIME,
		next_run_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);
	CREATE INDEX IF NOT EXISTS idx_schedules_next_run ON schedules(next_run_at);

	CREATE TABLE IF NOT EXISTS schedule_executions (
		id TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL,
		task_id TEXT NOT NULL DEFAULT '',
		executed_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_executions_schedule ON schedule_executions(schedule_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create creates a new schedule
func (s *Store) Create(schedule *Schedule) error {
	// Validate cron expression before inserting
	if err := ValidateCron(schedule.CronExpr); err != nil {
		return err
	}

	if schedule.ID == "" {
		schedule.ID = "sched_" + uuid.New().String()[:8]
	}
	if schedule.OverlapBehavior == "" {
		schedule.OverlapBehavior = OverlapSkip
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	// Calculate next run time if not set
	if schedule.NextRunAt == nil && schedule.Enabled {
		nextRun, err := NextRun(schedule.CronExpr, now)
		if err == nil {
			schedule.NextRunAt = &nextRun
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO schedules (id, name, cron_expr, prompt, backend_hint, workdir, session_id,
		                       enabled, overlap_behavior, created_at, updated_at, last_run_at, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID, schedule.Name, schedule.CronExpr, schedule.Prompt,
		schedule.BackendHint, schedule.Workdir, schedule.SessionID,
		schedule.Enabled, schedule.OverlapBehavior,
		schedule.CreatedAt, schedule.UpdatedAt, schedule.LastRunAt, schedule.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `id, name, cron_expr, prompt, backend_hint, workdir, session_id,
	enabled, overlap_behavior, created_at, updated_at, last_run_at, next_run_at`

func scanSchedule(scan func(...interface{}) error) (*Schedule, error) {
	var schedule Schedule
	var lastRunAt, nextRunAt sql.NullTime
	var enabled int

	if err := scan(
		&schedule.ID, &schedule.Name, &schedule.CronExpr, &schedule.Prompt,
		&schedule.BackendHint, &schedule.Workdir, &schedule.SessionID,
		&enabled, &schedule.OverlapBehavior,
		&schedule.CreatedAt, &schedule.UpdatedAt, &lastRunAt, &nextRunAt,
	); err != nil {
		return nil, err
	}

	schedule.Enabled = enabled != 0
	if lastRunAt.Valid {
		schedule.LastRunAt = &lastRunAt.Time
	}
	if nextRunAt.Valid {
		schedule.NextRunAt = &nextRunAt.Time
	}
	return &schedule, nil
}

// Get retrieves a schedule by ID
func (s *Store) Get(id string) (*Schedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	schedule, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	return schedule, nil
}

// List returns schedules matching the filter
func (s *Store) List(filter *ListFilter) ([]*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	var args []interface{}

	if filter != nil && filter.Enabled != nil {
		query += " WHERE enabled = ?"
		if *filter.Enabled {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []*Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// Update applies partial updates to a schedule
func (s *Store) Update(id string, update *ScheduleUpdate) error {
	// Validate cron expression if being updated
	if update.CronExpr != nil {
		if err := ValidateCron(*update.CronExpr); err != nil {
			return err
		}
	}

	// Build dynamic update query
	var setClauses []string
	var args []interface{}
	var cronChanged bool

	if update.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *update.Name)
	}
	if update.CronExpr != nil {
		setClauses = append(setClauses, "cron_expr = ?")
		args = append(args, *update.CronExpr)
		cronChanged = true
	}
	if update.Prompt != nil {
		setClauses = append(setClauses, "prompt = ?")
		args = append(args, *update.Prompt)
	}
	if update.BackendHint != nil {
		setClauses = append(setClauses, "backend_hint = ?")
		args = append(args, *update.BackendHint)
	}
	if update.Workdir != nil {
		setClauses = append(setClauses, "workdir = ?")
		args = append(args, *update.Workdir)
	}
	if update.SessionID != nil {
		setClauses = append(setClauses, "session_id = ?")
		args = append(args, *update.SessionID)
	}
	if update.Enabled != nil {
		setClauses = append(setClauses, "enabled = ?")
		if *update.Enabled {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if update.OverlapBehavior != nil {
		setClauses = append(setClauses, "overlap_behavior = ?")
		args = append(args, *update.OverlapBehavior)
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now())
	args = append(args, id)

	query := "UPDATE schedules SET " + setClauses[0]
	for i := 1; i < len(setClauses); i++ {
		query += ", " + setClauses[i]
	}
	query += " WHERE id = ?"

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrScheduleNotFound
	}

	// Recalculate next_run_at if cron expression changed
	if cronChanged {
		nextRun, err := NextRun(*update.CronExpr, time.Now())
		if err == nil {
			if _, err := s.db.Exec("UPDATE schedules SET next_run_at = ? WHERE id = ?", nextRun, id); err != nil {
				return fmt.Errorf("failed to update next_run_at: %w", err)
			}
		}
	}

	return nil
}

// Delete removes a schedule and its executions (CASCADE)
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// ListDue returns enabled schedules where next_run_at <= now
func (s *Store) ListDue(now time.Time) ([]*Schedule, error) {
	rows, err := s.db.Query(`
		SELECT `+scheduleColumns+` FROM schedules
		WHERE enabled = 1 AND next_run_at IS NOT NULL AND next_run_at <= ?
		ORDER BY next_run_at ASC`, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []*Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// UpdateRunTimes updates last_run_at and next_run_at for a schedule
func (s *Store) UpdateRunTimes(id string, lastRun, nextRun time.Time) error {
	result, err := s.db.Exec(`
		UPDATE schedules SET last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?`,
		lastRun, nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run times: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// RecordExecution stores the outcome of one firing
func (s *Store) RecordExecution(exec *Execution) error {
	if exec.ID == "" {
		exec.ID = "exec_" + uuid.New().String()[:8]
	}
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO schedule_executions (id, schedule_id, task_id, executed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.ScheduleID, exec.TaskID, exec.ExecutedAt, exec.Status, exec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// ListExecutions returns the most recent firings for a schedule
func (s *Store) ListExecutions(scheduleID string, limit int) ([]*Execution, error) {
	query := `
		SELECT id, schedule_id, task_id, executed_at, status, error
		FROM schedule_executions WHERE schedule_id = ?
		ORDER BY executed_at DESC`
	args := []interface{}{scheduleID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var executions []*Execution
	for rows.Next() {
		var exec Execution
		if err := rows.Scan(&exec.ID, &exec.ScheduleID, &exec.TaskID, &exec.ExecutedAt, &exec.Status, &exec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, &exec)
	}
	return executions, rows.Err()
}
