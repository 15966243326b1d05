package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/app"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("slot-worker", "info", true).Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("slot-worker", cfg.LogLevel, !cfg.IsProd())
	log.Info().
		Str("env", cfg.Env).
		Str("schedule", cfg.SlotWorkerSchedule).
		Int("horizon_days", cfg.SlotHorizonDays).
		Msg("slot-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connCtx, cancelConn := context.WithTimeout(rootCtx, 10*time.Second)
	deps, err := app.Open(connCtx, cfg, "slot-worker", log, true)
	cancelConn()
	if err != nil {
		log.Fatal().Err(err).Msg("dependency connection error")
	}
	defer deps.Close(log)

	locker := redisclient.NewRedisLocker(deps.Redis, "lock", cfg.LockTTL)
	job := worker.NewHorizonJob(deps.Service, locker, cfg.SlotHorizonDays, log)

	// Run once at startup
	if err := job.RunOnce(rootCtx); err != nil {
		log.Error().Err(err).Msg("initial run failed")
	}

	c, err := job.Schedule(rootCtx, cfg.SlotWorkerSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid SLOT_WORKER_SCHEDULE")
	}
	c.Start()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received, stopping slot worker")

	// Wait for an in-flight run to finish.
	<-c.Stop().Done()
	log.Info().Msg("slot-worker stopped")
}
