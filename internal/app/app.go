// Package app wires the components shared by the API server, the worker and
// the migrate tool.
package app

import (
	"context"
	"fmt"

	"chefshelf/internal/ai"
	"chefshelf/internal/config"
	"chefshelf/internal/database"
	"chefshelf/internal/logger"
	"chefshelf/internal/telemetry"
	"chefshelf/services"

	"github.com/redis/go-redis/v9"
)

type App struct {
	Config    *config.Config
	Metrics   *telemetry.Metrics
	Extractor *ai.RecipeExtractor
	Importer  *services.RecipeImporter
	Store     *services.RecipeStore
	// Redis is nil when REDIS_URL is unset or unreachable.
	Redis *redis.Client

	closers []func()
}

// New builds the pipeline and storage. Only a local store that cannot be
// opened is fatal; a missing AI key, remote database or Redis degrades the
// service instead.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("app.metrics.disabled", "error", err)
	}
	a.Metrics = metrics

	gen, err := ai.NewGenerator(ctx, cfg)
	if err != nil {
		logger.Warn("app.ai.unavailable", "provider", cfg.AIProvider, "error", err)
	}
	if gen == nil {
		logger.Warn("app.ai.not_configured", "hint", ai.MissingKeyHint)
	} else {
		a.closers = append(a.closers, func() { gen.Close() })
		logger.Info("app.ai.ready", "provider", gen.Name(), "model", gen.Model())
	}
	a.Extractor = ai.NewRecipeExtractor(gen, ai.SettingsFromConfig(cfg))

	var cache services.ChunkCache
	if cfg.RedisURL != "" {
		rdb, err := config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("app.redis.unavailable", "error", err)
		} else {
			a.Redis = rdb
			a.closers = append(a.closers, func() { rdb.Close() })
			cache = services.NewRedisChunkCache(rdb, cfg.ChunkCacheTTL)
		}
	}

	a.Importer = services.NewRecipeImporter(cfg, services.NewPDFExtractor(cfg), a.Extractor, cache, metrics)

	local, err := database.OpenLocalStore(cfg.LocalStorePath, cfg.LocalStoreKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	a.closers = append(a.closers, func() { local.Close() })

	remote, closeRemote := database.OpenRemote(ctx, cfg)
	a.closers = append(a.closers, closeRemote)

	a.Store = services.NewRecipeStore(remote, local, metrics)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
