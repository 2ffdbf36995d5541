package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sableworks/codeagentd/internal/agent"
	"github.com/sableworks/codeagentd/internal/api"
	"github.com/sableworks/codeagentd/internal/cleanup"
	"github.com/sableworks/codeagentd/internal/config"
	"github.com/sableworks/codeagentd/internal/events"
	"github.com/sableworks/codeagentd/internal/fsops"
	"github.com/sableworks/codeagentd/internal/logger"
	"github.com/sableworks/codeagentd/internal/orchestrator"
	"github.com/sableworks/codeagentd/internal/ratelimit"
	"github.com/sableworks/codeagentd/internal/schedule"
	"github.com/sableworks/codeagentd/internal/session"
	"github.com/sableworks/codeagentd/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	configDirFlag := flag.String("config", "", "Directory containing codeagentd.jsonc")
	addrFlag := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("codeagentd %s\n", Version)
		os.Exit(0)
	}

	// Load configuration; run on defaults when no file is found
	var cfg *config.Config
	configPath, err := config.FindConfigPath(*configDirFlag)
	if err != nil {
		if *configDirFlag != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *addrFlag != "" {
		cfg.Server.Address = *addrFlag
	}

	dataDir := cfg.Data.Dir
	logDir := filepath.Join(dataDir, "logs")

	if err := logger.Init(logDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Close() }()

	logger.Printf("codeagentd %s starting", Version)
	if configPath != "" {
		logger.Printf("Config: %s", configPath)
	} else {
		logger.Println("Config: built-in defaults")
	}

	// Fail fast if the wrapper binary cannot be found
	if bin, err := agent.ResolveWrapper(cfg.CodeAgent.BinaryPath); err != nil {
		logger.Printf("Warning: %v (tasks will fail until the wrapper is installed)", err)
	} else {
		logger.Printf("Wrapper binary: %s", bin)
	}

	// Application store (settings, workspaces, recent dirs)
	appStore, err := store.NewStore(dataDir)
	if err != nil {
		logger.Fatalf("Failed to open application store: %v", err)
	}
	defer func() { _ = appStore.Close() }()
	logger.Printf("Database: %s/codeagentd.db", dataDir)

	// Schedule store shares the application database
	scheduleStore, err := schedule.NewStore(appStore.DB())
	if err != nil {
		logger.Fatalf("Failed to open schedule store: %v", err)
	}

	// Chat session transcripts
	sessions, err := session.NewStore(filepath.Join(dataDir, "sessions"))
	if err != nil {
		logger.Fatalf("Failed to open session store: %v", err)
	}

	hub := events.NewHub()

	models := cfg.ModelRegistry()
	currentModel := ""
	if models.Default != "" {
		currentModel = models.ResolveModel(models.Default)
	}

	orch := orchestrator.New(orchestrator.Settings{
		Backend:            cfg.CodeAgent.Backend,
		BinaryPath:         cfg.CodeAgent.BinaryPath,
		Workdir:            cfg.CodeAgent.Workdir,
		SkipPermissions:    cfg.CodeAgent.SkipPermissions,
		TimeoutMs:          cfg.CodeAgent.TimeoutMs,
		MaxParallelWorkers: cfg.CodeAgent.MaxParallelWorkers,
		CurrentModel:       currentModel,
	}, hub, sessions)

	// Scheduled prompts run through the same orchestrator path as the API.
	// The execution func holds the schedule's running slot until the task
	// finishes, which is what the skip overlap policy keys on.
	runner := schedule.NewRunner(scheduleStore, func(ctx context.Context, s *schedule.Schedule) (string, error) {
		taskID, err := orch.Submit(orchestrator.TaskRequest{
			Task:        s.Prompt,
			SessionID:   s.SessionID,
			BackendHint: s.BackendHint,
		})
		if err != nil {
			return "", err
		}
		select {
		case <-orch.Done(taskID):
		case <-ctx.Done():
		}
		return taskID, nil
	})
	runner.Start()

	cleaner := cleanup.New(cleanup.DefaultConfig(dataDir))
	cleaner.Start()

	limiter := ratelimit.NewRateLimiter(cfg.Limits.RatePerSec, cfg.Limits.RateBurst)
	handler := api.NewHandler(orch, hub, sessions, appStore, scheduleStore, runner,
		models, fsops.New(cfg.Limits.FsMaxReadBytes))
	e := api.NewServer(handler, limiter)

	logger.Printf("Listening on %s", cfg.Server.Address)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(cfg.Server.Address)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdownChan:
		logger.Printf("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.Shutdown(ctx); err != nil {
			logger.Error("HTTP shutdown: %v", err)
		}
		runner.Stop()
		cleaner.Stop()
		logger.Println("Shutdown complete")
	}
}
