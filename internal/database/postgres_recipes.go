package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chefshelf/internal/config"
	"chefshelf/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recipesSchema creates the recipes table. Ingredients and steps are jsonb.
var recipesSchema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id          TEXT PRIMARY KEY,
		lesson_name TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL,
		ingredients JSONB NOT NULL DEFAULT '[]'::jsonb,
		steps       JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS recipes_created_at_idx ON recipes (created_at DESC)`,
}

// PostgresRecipes stores recipes in a PostgreSQL table through a pgx pool.
type PostgresRecipes struct {
	pool *pgxpool.Pool
}

// OpenPostgres parses dsn and creates a pool. The pool connects lazily.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecipes, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_DSN: %w", err)
	}
	pc.MaxConns = 8
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "chefshelf"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &PostgresRecipes{pool: pool}, nil
}

func (p *PostgresRecipes) Name() string { return config.BackendPostgres }

// Migrate creates the recipes table and index.
func (p *PostgresRecipes) Migrate(ctx context.Context) error {
	for _, stmt := range recipesSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create recipes schema: %w", err)
		}
	}
	return nil
}

// InsertRecipes inserts the batch in one transaction; existing ids are skipped.
func (p *PostgresRecipes) InsertRecipes(ctx context.Context, recipes []models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range recipes {
		ingredients, err := json.Marshal(r.Ingredients)
		if err != nil {
			return fmt.Errorf("encode ingredients: %w", err)
		}
		steps, err := json.Marshal(r.Steps)
		if err != nil {
			return fmt.Errorf("encode steps: %w", err)
		}
		batch.Queue(`
			INSERT INTO recipes (id, lesson_name, title, ingredients, steps, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.LessonName, r.Title, string(ingredients), string(steps), r.CreatedAt)
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres insert recipes: %w", err)
	}
	return nil
}

// SearchRecipes matches title or lesson_name with ILIKE over an escaped
// pattern, newest first.
func (p *PostgresRecipes) SearchRecipes(ctx context.Context, query string) ([]models.Recipe, error) {
	sql := `SELECT id, lesson_name, title, ingredients, steps, created_at FROM recipes`
	args := []any{}
	if query != "" {
		sql += ` WHERE title ILIKE $1 ESCAPE '\' OR lesson_name ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(query)+"%")
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres search recipes: %w", err)
	}
	defer rows.Close()

	recipes := []models.Recipe{}
	for rows.Next() {
		var r models.Recipe
		var ingredients, steps []byte
		if err := rows.Scan(&r.ID, &r.LessonName, &r.Title, &ingredients, &steps, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
			return nil, fmt.Errorf("decode ingredients of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(steps, &r.Steps); err != nil {
			return nil, fmt.Errorf("decode steps of %s: %w", r.ID, err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres search recipes: %w", err)
	}
	return recipes, nil
}

func (p *PostgresRecipes) Close() {
	p.pool.Close()
}

// escapeLike makes query match literally inside a LIKE pattern.
func escapeLike(query string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
}
