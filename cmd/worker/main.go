package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"jules-backend/internal/config"
	"jules-backend/internal/infra/storage"
	workerPkg "jules-backend/internal/infra/worker"
	"jules-backend/internal/observability/logging"
	migUC "jules-backend/internal/usecase/migration"
	"jules-backend/internal/usecase/reaper"
)

func main() {
	_ = godotenv.Load()

	logger := initLogger()

	storageCfg, err := config.LoadStorage()
	if err != nil {
		logger.Error("failed to load storage configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("cleanup_timeout", workerConfig.CleanupTimeout),
		slog.Int("cleanup_batch_size", workerConfig.CleanupBatchSize),
		slog.Int("health_port", workerConfig.HealthPort))

	backend := initStorage(ctx, logger, storageCfg)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, backend.Ping, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	sweeper := setupReaper(logger, backend, workerConfig, workerMetrics)
	startCronWorker(ctx, logger, sweeper, workerConfig, healthServer)
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func initLogger() *slog.Logger {
	logger := logging.NewLogger().With(slog.String("component", "worker"))
	slog.SetDefault(logger)
	return logger
}

func initStorage(ctx context.Context, logger *slog.Logger, cfg *config.StorageConfig) *storage.Backend {
	openCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	backend, err := storage.Open(openCtx, *cfg, logger)
	if err != nil {
		logger.Error("failed to open storage",
			slog.String("driver", cfg.StorageDriver),
			slog.Any("error", err))
		os.Exit(1)
	}
	if backend.Driver == config.DriverMemory {
		logger.Warn("the worker cannot see the API's in-memory store, sweeps will find nothing")
	}
	return backend
}

// setupReaper builds the sweep over the migration service.
func setupReaper(logger *slog.Logger, backend *storage.Backend, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) *reaper.Reaper {
	svc := migUC.NewService(backend.Tx, backend.Repos)
	svc.CleanupBatchSize = cfg.CleanupBatchSize
	svc.Logger = logger

	r := reaper.New(svc, svc, cfg.CleanupTimeout, logger)
	r.Observer = metrics
	return r
}

// startCronWorker schedules the sweep and blocks until ctx is cancelled,
// then waits for a running sweep to finish.
func startCronWorker(ctx context.Context, logger *slog.Logger, r *reaper.Reaper, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer) {
	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := r.Schedule(c, cfg.CronSchedule); err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	if cfg.RunOnStart {
		go func() {
			if _, err := r.Run(ctx); err != nil && !errors.Is(err, reaper.ErrAlreadyRunning) {
				logger.Warn("startup sweep failed", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down worker...")
	healthServer.SetReady(false)

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.CleanupTimeout):
		logger.Warn("timed out waiting for the running sweep")
	}
	logger.Info("worker stopped")
}
