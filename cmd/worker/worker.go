package main

import (
	"context"
	"log"

	"chefshelf/internal/app"
	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/internal/queue"
	"chefshelf/internal/telemetry"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required to run the import worker")
	}

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("telemetry.tracer.failed", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize:", err)
	}
	defer a.Close()

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis settings:", err)
	}

	// Imports are dominated by AI calls, so a few concurrent documents are enough
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queue.ImportQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Error("queue.task.failed", "type", task.Type(), "retried", retried, "max_retry", maxRetry, "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(a.Importer, a.Store)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskImportRecipes, processor.ImportRecipes)

	logger.Info("worker.starting", "queue", queue.ImportQueue, "concurrency", 4, "redis", redisOpt.Addr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
