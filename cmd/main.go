package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chefshelf/internal/app"
	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/internal/telemetry"
	"chefshelf/middleware"
	"chefshelf/routes"
	"chefshelf/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
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

	syncer := services.NewSyncScheduler(a.Store)
	if err := syncer.Start(cfg.SyncInterval); err != nil {
		logger.Warn("sync.schedule_failed", "error", err)
	}
	defer syncer.Stop()

	// Background imports need Redis
	deps := routes.ImportDeps{Config: cfg, Importer: a.Importer, Store: a.Store}
	if cfg.RedisURL != "" {
		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err != nil {
			logger.Warn("queue.disabled", "error", err)
		} else {
			client := asynq.NewClient(redisOpt)
			defer client.Close()
			inspector := asynq.NewInspector(redisOpt)
			defer inspector.Close()
			deps.Queue = client
			deps.Inspector = inspector
		}
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxFileSize
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(a.Metrics))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if a.Redis != nil {
		router.Use(middleware.RateLimitMiddleware(a.Redis, cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	routes.SetupHealthRoutes(router, routes.HealthInfo{
		AIProvider:   cfg.AIProvider,
		AIConfigured: cfg.AIConfigured(),
		RemoteStore:  a.Store.HasRemote(),
		Queue:        deps.Queue != nil,
	})
	routes.SetupRecipeRoutes(router, a.Store)
	routes.SetupImportRoutes(router, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.starting", "port", cfg.Port, "ai_provider", cfg.AIProvider, "remote", cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.forced_shutdown", "error", err)
	}

	logger.Info("server.exited")
}
