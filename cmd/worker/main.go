package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/recallhq/memory-api/internal/config"
	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/database"
	"github.com/recallhq/memory-api/internal/mirror"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	queue, err := mirror.NewRedisQueue(cfg.RedisHost+":"+cfg.RedisPort, cfg.RedisPassword, cfg.SyncQueue)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer queue.Close()

	memoryRepo := repository.NewMemoryRepository(database.GetDB())
	records := services.NewMemoryService(memoryRepo, queue, logger)
	client := mirror.NewHTTPClient(cfg.MemoryBaseURL, cfg.MemoryAPIKey)

	dispatcher := mirror.NewDispatcher(queue, client, records, logger, mirror.DispatcherOptions{
		Workers:     cfg.SyncWorkers,
		MaxAttempts: constants.MaxSyncAttempts,
		RetryDelay:  constants.SyncRetryDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sync worker starting", "workers", cfg.SyncWorkers, "queue", cfg.SyncQueue)
	dispatcher.Run(ctx)
	logger.Info("sync worker stopped")
}
