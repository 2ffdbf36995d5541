package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sableworks/codeagentd/internal/config"
	"github.com/sableworks/codeagentd/internal/events"
	"github.com/sableworks/codeagentd/internal/fsops"
	"github.com/sableworks/codeagentd/internal/orchestrator"
	"github.com/sableworks/codeagentd/internal/schedule"
	"github.com/sableworks/codeagentd/internal/session"
	"github.com/sableworks/codeagentd/internal/store"
)

// newTestHandler wires a handler against temp-dir backed stores and an
// execution func that never spawns a process.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	dir := t.TempDir()

	appStore, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("store.NewStore: %v", err)
	}
	t.Cleanup(func() { _ = appStore.Close() })

	schedStore, err := schedule.NewStore(appStore.DB())
	if err != nil {
		t.Fatalf("schedule.NewStore: %v", err)
	}

	sessions, err := session.NewStore(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("session.NewStore: %v", err)
	}

	hub := events.NewHub()
	orch := orchestrator.New(orchestrator.Settings{Workdir: dir}, hub, sessions)

	runner := schedule.NewRunner(schedStore, func(ctx context.Context, s *schedule.Schedule) (string, error) {
		return "task_sched01", nil
	})
	t.Cleanup(runner.Stop)

	models := &config.ModelRegistry{
		Models: map[string]config.ModelDefinition{
			"sonnet": {Model: "claude-sonnet-4", DisplayName: "Sonnet", Backend: "claude"},
		},
		Default: "sonnet",
	}

	return NewHandler(orch, hub, sessions, appStore, schedStore, runner, models, fsops.New(1<<20))
}
