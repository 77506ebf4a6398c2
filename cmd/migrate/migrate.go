package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"chefshelf/internal/app"
	"chefshelf/internal/config"
	"chefshelf/internal/database"
	"chefshelf/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  schema  - Create the recipes table or collection indexes on the remote database")
		fmt.Println("  sync    - Push the local recipe snapshot to the remote database once")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "schema":
		if err := migrateSchema(ctx, cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Schema ready on %s\n", cfg.RemoteBackend)

	case "sync":
		a, err := app.New(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer a.Close()
		if !a.Store.HasRemote() {
			log.Fatal("No remote database configured; set MONGO_URI or POSTGRES_DSN")
		}

		synced, err := a.Store.SyncLocalToRemote(ctx)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		fmt.Printf("Synced %d recipes to %s\n", synced, cfg.RemoteBackend)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func migrateSchema(ctx context.Context, cfg *config.Config) error {
	switch cfg.RemoteBackend {
	case config.BackendMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		return config.CreateIndexes(ctx, client, cfg.DBName)

	case config.BackendPostgres:
		store, err := database.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Migrate(ctx)

	default:
		return fmt.Errorf("no remote database configured (REMOTE_BACKEND=%q)", cfg.RemoteBackend)
	}
}
