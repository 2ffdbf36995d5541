package schedule

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	sched := &Schedule{
		Name:        "nightly-report",
		CronExpr:    "0 2 * * *",
		Prompt:      "Summarize yesterday's commits",
		BackendHint: "claude",
		Workdir:     "/srv/repo",
		SessionID:   "chat-1",
		Enabled:     true,
	}
	if err := store.Create(sched); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sched.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if sched.OverlapBehavior != OverlapSkip {
		t.Errorf("default overlap = %q, want skip", sched.OverlapBehavior)
	}
	if sched.NextRunAt == nil {
		t.Error("NextRunAt not calculated for enabled schedule")
	}

	got, err := store.Get(sched.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "nightly-report" || got.Prompt != "Summarize yesterday's commits" {
		t.Errorf("got = %+v", got)
	}
	if got.BackendHint != "claude" || got.Workdir != "/srv/repo" || got.SessionID != "chat-1" {
		t.Errorf("execution fields = %+v", got)
	}
	if !got.Enabled {
		t.Error("Enabled not persisted")
	}
}

func TestStoreCreateRejectsInvalidCron(t *testing.T) {
	store := newTestStore(t)

	err := store.Create(&Schedule{Name: "bad", CronExpr: "not a cron", Prompt: "x"})
	if !errors.Is(err, ErrInvalidCron) {
		t.Errorf("Create error = %v, want ErrInvalidCron", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("sched_missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("Get = %v, want ErrScheduleNotFound", err)
	}
}

func TestStoreListWithFilter(t *testing.T) {
	store := newTestStore(t)

	for i, enabled := range []bool{true, false, true} {
		sched := &Schedule{
			Name:     "s" + string(rune('a'+i)),
			CronExpr: "* * * * *",
			Prompt:   "p",
			Enabled:  enabled,
		}
		if err := store.Create(sched); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered = %d, want 3", len(all))
	}

	enabled := true
	active, err := store.List(&ListFilter{Enabled: &enabled})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Errorf("enabled = %d, want 2", len(active))
	}
}

func TestStoreUpdate(t *testing.T) {
	store := newTestStore(t)

	sched := &Schedule{Name: "orig", CronExpr: "0 * * * *", Prompt: "p", Enabled: true}
	if err := store.Create(sched); err != nil {
		t.Fatal(err)
	}

	newName := "renamed"
	newCron := "*/5 * * * *"
	disabled := false
	err := store.Update(sched.ID, &ScheduleUpdate{
		Name:     &newName,
		CronExpr: &newCron,
		Enabled:  &disabled,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(sched.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed" || got.CronExpr != "*/5 * * * *" || got.Enabled {
		t.Errorf("after update = %+v", got)
	}
	if got.NextRunAt == nil {
		t.Error("NextRunAt not recalculated after cron change")
	}

	badCron := "garbage"
	if err := store.Update(sched.ID, &ScheduleUpdate{CronExpr: &badCron}); !errors.Is(err, ErrInvalidCron) {
		t.Errorf("invalid cron update = %v, want ErrInvalidCron", err)
	}

	if err := store.Update("sched_missing", &ScheduleUpdate{Name: &newName}); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("update missing = %v, want ErrScheduleNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	sched := &Schedule{Name: "s", CronExpr: "* * * * *", Prompt: "p"}
	if err := store.Create(sched); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(sched.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(sched.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("second delete = %v, want ErrScheduleNotFound", err)
	}
}

func TestStoreListDue(t *testing.T) {
	store := newTestStore(t)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := &Schedule{Name: "due", CronExpr: "* * * * *", Prompt: "p", Enabled: true, NextRunAt: &past}
	notDue := &Schedule{Name: "later", CronExpr: "* * * * *", Prompt: "p", Enabled: true, NextRunAt: &future}
	off := &Schedule{Name: "off", CronExpr: "* * * * *", Prompt: "p", Enabled: false, NextRunAt: &past}

	for _, s := range []*Schedule{due, notDue, off} {
		if err := store.Create(s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListDue(time.Now())
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("ListDue = %+v, want only %s", got, due.ID)
	}
}

func TestStoreUpdateRunTimes(t *testing.T) {
	store := newTestStore(t)

	sched := &Schedule{Name: "s", CronExpr: "* * * * *", Prompt: "p", Enabled: true}
	if err := store.Create(sched); err != nil {
		t.Fatal(err)
	}

	last := time.Now()
	next := last.Add(time.Minute)
	if err := store.UpdateRunTimes(sched.ID, last, next); err != nil {
		t.Fatalf("UpdateRunTimes: %v", err)
	}

	got, err := store.Get(sched.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastRunAt == nil || got.NextRunAt == nil {
		t.Fatal("run times not set")
	}
}

func TestStoreExecutions(t *testing.T) {
	store := newTestStore(t)

	sched := &Schedule{Name: "s", CronExpr: "* * * * *", Prompt: "p"}
	if err := store.Create(sched); err != nil {
		t.Fatal(err)
	}

	for i, status := range []ExecutionStatus{ExecutionSuccess, ExecutionFailed, ExecutionSkipped} {
		exec := &Execution{
			ScheduleID: sched.ID,
			TaskID:     "task_" + string(rune('a'+i)),
			ExecutedAt: time.Now().Add(time.Duration(i) * time.Second),
			Status:     status,
		}
		if err := store.RecordExecution(exec); err != nil {
			t.Fatalf("RecordExecution: %v", err)
		}
		if exec.ID == "" {
			t.Error("execution ID not assigned")
		}
	}

	execs, err := store.ListExecutions(sched.ID, 0)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if len(execs) != 3 {
		t.Fatalf("got %d executions, want 3", len(execs))
	}
	// Newest first
	if execs[0].Status != ExecutionSkipped {
		t.Errorf("first = %+v, want most recent", execs[0])
	}

	limited, err := store.ListExecutions(sched.ID, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited = %d, %v", len(limited), err)
	}
}
