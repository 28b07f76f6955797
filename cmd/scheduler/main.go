package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/coop-ledger/internal/app"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/logging"
	"github.com/segyhp/coop-ledger/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.Component(logging.NewLogger(cfg.Logging), "scheduler")
	logger.Info("Starting ledger scheduler...", "timezone", cfg.Scheduler.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer application.Close()

	c := scheduler.New(cfg)

	jobs := []struct {
		spec string
		job  scheduler.Job
	}{
		{cfg.Scheduler.SnapshotSpec, scheduler.NewSnapshotJob(application.Dashboard, logger)},
		{cfg.Scheduler.YearEndPreview, scheduler.NewPreviewJob(application.YearEnd, logger)},
	}
	for _, j := range jobs {
		if _, err := scheduler.Schedule(c, j.spec, j.job, logger); err != nil {
			logger.Error("Error scheduling job", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Start the scheduler
	c.Start()
	logger.Info("Scheduler started successfully")

	<-ctx.Done()
	logger.Info("Shutting down scheduler...")

	// Wait for running jobs to finish
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
