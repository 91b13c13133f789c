package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helion-data/scanflow/internal/engine"
	"github.com/helion-data/scanflow/internal/logging"
	"github.com/helion-data/scanflow/internal/scheduler"
	"github.com/helion-data/scanflow/internal/store"
	"github.com/helion-data/scanflow/pkg/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "scanflow:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	opts := []engine.Option{engine.WithLogger(logger)}

	var history store.Store
	if cfg.EnableAnalytics {
		if err := os.MkdirAll(scanflowDir(), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		if err := s.Migrate(context.Background()); err != nil {
			return fmt.Errorf("migrate history store: %w", err)
		}
		history = s
		opts = append(opts, engine.WithHistoryStore(s))
	}

	eng, err := engine.New(cfg.engineConfig(), opts...)
	if err != nil {
		if history != nil {
			_ = history.Close()
		}
		return fmt.Errorf("create engine: %w", err)
	}

	srv := mcp.NewScanflowServer(mcp.ScanflowServerDeps{
		Engine: eng,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if jobs := cfg.scheduledJobs(); len(jobs) > 0 {
		sched = scheduler.New(eng, logger)
		for _, job := range jobs {
			if err := sched.Add(job); err != nil {
				logger.Warn("skipping scheduled job",
					slog.String("job_id", job.ID), slog.String("error", err.Error()))
			}
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	logger.Info("scanflow started",
		slog.Bool("analytics", cfg.EnableAnalytics),
		slog.Bool("monitoring", cfg.EnableMonitoring),
		slog.Int("scheduled_jobs", len(cfg.Jobs)))

	serveErr := srv.Serve(ctx)

	if sched != nil {
		_ = sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	if serveErr != nil && ctx.Err() == nil {
		return serveErr
	}
	return nil
}

// newLogger builds the slog logger with correlation ids injected from context.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(base))
}
