package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chefshelf/internal/logger"
	"chefshelf/models"

	_ "modernc.org/sqlite"
)

// LocalStore keeps the whole recipe list as one JSON array under a single key
// in a SQLite key-value table. Reads and writes always move the full array.
type LocalStore struct {
	db  *sql.DB
	key string
	mu  sync.Mutex
}

// OpenLocalStore opens (creating if needed) the SQLite file at path.
func OpenLocalStore(path, key string) (*LocalStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local store: %w", err)
	}
	return &LocalStore{db: db, key: key}, nil
}

// Load returns the stored snapshot, most recent first. A missing or corrupt
// snapshot reads as empty.
func (s *LocalStore) Load(ctx context.Context) ([]models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Prepend puts recipes in front of the stored snapshot.
func (s *LocalStore) Prepend(ctx context.Context, recipes []models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx)
	if err != nil {
		return err
	}

	snapshot := make([]models.Recipe, 0, len(recipes)+len(existing))
	snapshot = append(snapshot, recipes...)
	snapshot = append(snapshot, existing...)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode local snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.key, string(data))
	if err != nil {
		return fmt.Errorf("write local snapshot: %w", err)
	}
	return nil
}

func (s *LocalStore) load(ctx context.Context) ([]models.Recipe, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Recipe{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local snapshot: %w", err)
	}

	var recipes []models.Recipe
	if err := json.Unmarshal([]byte(value), &recipes); err != nil {
		logger.Warn("store.local.corrupt_snapshot", "key", s.key, "error", err)
		return []models.Recipe{}, nil
	}
	return models.NormalizeAll(recipes), nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
