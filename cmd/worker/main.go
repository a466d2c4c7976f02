package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/fieldops/internal/database"
	"github.com/hugh/fieldops/internal/tasks"
	"github.com/hugh/fieldops/pkg/config"
	"github.com/hugh/fieldops/pkg/queue"
	"github.com/hugh/fieldops/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting fieldops worker", "concurrency", cfg.Worker.Concurrency)

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Error("invalid APP_TIMEZONE", "error", err)
		os.Exit(1)
	}
	if err := util.ValidateCronExpr(cfg.Worker.SLASweepCron); err != nil {
		logger.Error("invalid SLA_SWEEP_CRON", "cron", cfg.Worker.SLASweepCron, "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	handler := tasks.NewHandler(db, util.Component(logger, "tasks"))
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis, loc)
	entryID, err := scheduler.Register(cfg.Worker.SLASweepCron, tasks.NewSLASweepTask(), asynq.Queue(queue.QueueLow))
	if err != nil {
		logger.Error("failed to register SLA sweep", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Worker.SLASweepCron, time.Now().In(loc)); err == nil {
		logger.Info("SLA sweep scheduled", "entry_id", entryID, "cron", cfg.Worker.SLASweepCron, "next_run", next)
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("scheduler error", "error", err)
		srv.Shutdown()
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	if err := database.Close(db); err != nil {
		logger.Error("closing database", "error", err)
	}

	logger.Info("worker stopped")
}
