package database

import (
	"context"

	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/services"
)

// OpenRemote builds the remote recipe store selected by config. It returns a
// nil store, without error, when no backend is configured or its settings are
// unusable, so the caller runs local-only. The cleanup func is never nil.
func OpenRemote(ctx context.Context, cfg *config.Config) (services.RemoteStore, func()) {
	switch cfg.RemoteBackend {
	case config.BackendMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			logger.Warn("store.remote.unavailable", "backend", cfg.RemoteBackend, "error", err)
			return nil, func() {}
		}
		store := NewMongoRecipes(client, cfg.DBName)
		return store, func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("store.remote.close_failed", "error", err)
			}
		}

	case config.BackendPostgres:
		store, err := OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Warn("store.remote.unavailable", "backend", cfg.RemoteBackend, "error", err)
			return nil, func() {}
		}
		return store, store.Close

	case "":
		logger.Info("store.remote.disabled")
		return nil, func() {}

	default:
		logger.Warn("store.remote.unknown_backend", "backend", cfg.RemoteBackend)
		return nil, func() {}
	}
}
