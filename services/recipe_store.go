package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"chefshelf/internal/logger"
	"chefshelf/internal/telemetry"
	"chefshelf/models"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// RemoteStore is the hosted recipe database.
type RemoteStore interface {
	Name() string
	// InsertRecipes must be idempotent by recipe ID.
	InsertRecipes(ctx context.Context, recipes []models.Recipe) error
	// SearchRecipes matches query case-insensitively against title or lesson
	// name, newest first. An empty query returns everything.
	SearchRecipes(ctx context.Context, query string) ([]models.Recipe, error)
}

// LocalStore is the on-device snapshot used when the remote is unreachable.
type LocalStore interface {
	// Load returns the snapshot, most recent first.
	Load(ctx context.Context) ([]models.Recipe, error)
	// Prepend adds recipes in front of the snapshot.
	Prepend(ctx context.Context, recipes []models.Recipe) error
}

// SaveResult reports which backends accepted a save.
type SaveResult struct {
	Recipes []models.Recipe `json:"recipes"`
	Remote  bool            `json:"remote"`
	Local   bool            `json:"local"`
}

// The remote gets a slice of the caller's deadline. The local step runs on a
// detached context so a hung remote cannot starve the fallback.
const (
	defaultRemoteTimeout = 4 * time.Second
	defaultLocalTimeout  = 5 * time.Second
)

// RecipeStore saves to the remote database and the local snapshot, and
// searches remote first with a local fallback.
type RecipeStore struct {
	remote  RemoteStore
	local   LocalStore
	breaker *gobreaker.CircuitBreaker
	metrics *telemetry.Metrics
	now     func() time.Time
	newID   func() string

	remoteTimeout time.Duration
	localTimeout  time.Duration
}

// NewRecipeStore creates the gateway. remote may be nil for local-only mode.
func NewRecipeStore(remote RemoteStore, local LocalStore, metrics *telemetry.Metrics) *RecipeStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RemoteRecipeDB",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("store.breaker.state_change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &RecipeStore{
		remote:  remote,
		local:   local,
		breaker: breaker,
		metrics: metrics,
		now:     time.Now,
		newID:   newRecipeID,

		remoteTimeout: defaultRemoteTimeout,
		localTimeout:  defaultLocalTimeout,
	}
}

// HasRemote reports whether a remote database is configured.
func (s *RecipeStore) HasRemote() bool {
	return s.remote != nil
}

// Save assigns missing IDs and timestamps, inserts into the remote, then
// always prepends to the local snapshot. It fails with ErrStorageFailure only
// when neither write succeeded.
func (s *RecipeStore) Save(ctx context.Context, recipes []models.Recipe) (*SaveResult, error) {
	if len(recipes) == 0 {
		return &SaveResult{Recipes: []models.Recipe{}}, nil
	}

	records := s.stamp(recipes)
	result := &SaveResult{Recipes: records}

	var remoteErr error
	if s.remote != nil {
		_, remoteErr = s.breaker.Execute(func() (interface{}, error) {
			rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
			defer cancel()
			return nil, s.remote.InsertRecipes(rctx, records)
		})
		result.Remote = remoteErr == nil
		s.metrics.RecordDatabaseOperation("insert", s.remote.Name(), result.Remote)
		if remoteErr != nil {
			logger.Warn("store.remote.insert_failed", "backend", s.remote.Name(), "count", len(records), "error", remoteErr)
		}
	} else {
		remoteErr = errors.New("no remote database configured")
	}

	lctx, cancel := s.localContext(ctx)
	defer cancel()
	localErr := s.local.Prepend(lctx, records)
	result.Local = localErr == nil
	if localErr != nil {
		logger.Error("store.local.write_failed", "count", len(records), "error", localErr)
	}
	if !result.Remote && result.Local {
		s.metrics.RecordStorageFallback("save")
	}

	if !result.Remote && !result.Local {
		return nil, fmt.Errorf("%w: remote: %v; local: %v", models.ErrStorageFailure, remoteErr, localErr)
	}

	logger.Info("store.save.completed", "count", len(records), "remote", result.Remote, "local", result.Local)
	return result, nil
}

// Search returns recipes whose title or lesson name contains query. Remote
// results are newest first; the local fallback keeps snapshot order.
func (s *RecipeStore) Search(ctx context.Context, query string) ([]models.Recipe, error) {
	query = strings.TrimSpace(query)

	if s.remote != nil {
		out, err := s.breaker.Execute(func() (interface{}, error) {
			rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
			defer cancel()
			return s.remote.SearchRecipes(rctx, query)
		})
		s.metrics.RecordDatabaseOperation("search", s.remote.Name(), err == nil)
		if err == nil {
			recipes, _ := out.([]models.Recipe)
			return models.NormalizeAll(recipes), nil
		}
		logger.Warn("store.remote.search_failed", "backend", s.remote.Name(), "error", err)
		s.metrics.RecordStorageFallback("search")
	}

	lctx, cancel := s.localContext(ctx)
	defer cancel()
	recipes, err := s.local.Load(lctx)
	if err != nil {
		return nil, fmt.Errorf("%w: local search: %v", models.ErrStorageUnavailable, err)
	}

	matched := make([]models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Matches(query) {
			matched = append(matched, r)
		}
	}
	return models.NormalizeAll(matched), nil
}

// SyncLocalToRemote pushes the local snapshot to the remote. Remote inserts
// are idempotent by ID, so already-synced records are left untouched.
func (s *RecipeStore) SyncLocalToRemote(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, nil
	}

	recipes, err := s.local.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load local snapshot: %w", err)
	}

	pending := make([]models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		// records saved before IDs were assigned locally cannot be matched
		if r.ID != "" {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.remote.InsertRecipes(ctx, models.NormalizeAll(pending))
	})
	s.metrics.RecordDatabaseOperation("sync", s.remote.Name(), err == nil)
	if err != nil {
		return 0, fmt.Errorf("sync to %s: %w", s.remote.Name(), err)
	}
	return len(pending), nil
}

// localContext keeps the caller's values but not its deadline or cancellation.
func (s *RecipeStore) localContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.localTimeout)
}

// stamp copies recipes, normalizing them and filling ID and CreatedAt once so
// both backends store identical records.
func (s *RecipeStore) stamp(recipes []models.Recipe) []models.Recipe {
	now := s.now().UTC()
	out := make([]models.Recipe, len(recipes))
	for i, r := range recipes {
		out[i] = r.Clone()
		out[i].Normalize()
		if out[i].ID == "" {
			out[i].ID = s.newID()
		}
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
		}
	}
	return out
}

func newRecipeID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%x-%x", time.Now().UnixNano(), rand.Uint64())
	}
	return id.String()
}
