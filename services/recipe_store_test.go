package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"chefshelf/models"
)

type memoryLocalStore struct {
	mu      sync.Mutex
	recipes []models.Recipe
	err     error
}

func (m *memoryLocalStore) Load(context.Context) ([]models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Recipe{}, m.recipes...), nil
}

func (m *memoryLocalStore) Prepend(_ context.Context, recipes []models.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recipes = append(append([]models.Recipe{}, recipes...), m.recipes...)
	return nil
}

type fakeRemoteStore struct {
	mu       sync.Mutex
	byID     map[string]models.Recipe
	inserts  int
	failing  bool
	searched int
}

func newFakeRemote() *fakeRemoteStore {
	return &fakeRemoteStore{byID: map[string]models.Recipe{}}
}

func (f *fakeRemoteStore) Name() string { return "fake" }

func (f *fakeRemoteStore) InsertRecipes(_ context.Context, recipes []models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failing {
		return errors.New("connection refused")
	}
	for _, r := range recipes {
		if _, ok := f.byID[r.ID]; !ok {
			f.byID[r.ID] = r
		}
	}
	return nil
}

func (f *fakeRemoteStore) SearchRecipes(_ context.Context, query string) ([]models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched++
	if f.failing {
		return nil, errors.New("connection refused")
	}
	var out []models.Recipe
	for _, r := range f.byID {
		if r.Matches(query) {
			out = append(out, r)
		}
	}
	return out, nil
}

func sampleRecipes() []models.Recipe {
	return []models.Recipe{
		{LessonName: "Aula 3", Title: "Bolo de Cenoura"},
		{LessonName: "Aula 3", Title: "Torta"},
		{LessonName: "Doces", Title: "Sobremesas"},
	}
}

func TestSaveFallsBackToLocalWhenRemoteIsDown(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.failing = true
	local := &memoryLocalStore{}
	store := NewRecipeStore(remote, local, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	result, err := store.Save(ctx, sampleRecipes())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.Remote || !result.Local {
		t.Fatalf("expected local-only save, got %+v", result)
	}
	for _, r := range result.Recipes {
		if r.ID == "" || !r.CreatedAt.Equal(fixed) {
			t.Fatalf("recipe not stamped: %+v", r)
		}
	}

	found, err := store.Search(ctx, "bolo")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Bolo de Cenoura" {
		t.Fatalf("search bolo = %+v", found)
	}
	if found[0].ID != result.Recipes[0].ID {
		t.Fatalf("local record does not match the saved one")
	}
}

func TestSaveWritesBothBackends(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	local := &memoryLocalStore{}
	store := NewRecipeStore(remote, local, nil)

	result, err := store.Save(ctx, sampleRecipes())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.Remote || !result.Local {
		t.Fatalf("expected both writes, got %+v", result)
	}
	if len(remote.byID) != 3 || len(local.recipes) != 3 {
		t.Fatalf("remote=%d local=%d", len(remote.byID), len(local.recipes))
	}
	for _, r := range local.recipes {
		if !reflect.DeepEqual(remote.byID[r.ID], r) {
			t.Fatalf("backends diverge for %s", r.ID)
		}
	}
}

func TestSaveKeepsExistingIdentity(t *testing.T) {
	store := NewRecipeStore(nil, &memoryLocalStore{}, nil)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	result, err := store.Save(context.Background(), []models.Recipe{{ID: "keep", Title: "Pudim", CreatedAt: created}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := result.Recipes[0]; got.ID != "keep" || !got.CreatedAt.Equal(created) {
		t.Fatalf("identity changed: %+v", got)
	}
}

func TestSaveFailsWhenBothBackendsFail(t *testing.T) {
	remote := newFakeRemote()
	remote.failing = true
	store := NewRecipeStore(remote, &memoryLocalStore{err: errors.New("disk full")}, nil)

	_, err := store.Save(context.Background(), sampleRecipes())
	if !errors.Is(err, models.ErrStorageFailure) {
		t.Fatalf("error = %v, want ErrStorageFailure", err)
	}
}

func TestSaveNothing(t *testing.T) {
	local := &memoryLocalStore{}
	store := NewRecipeStore(nil, local, nil)

	result, err := store.Save(context.Background(), nil)
	if err != nil || len(result.Recipes) != 0 || len(local.recipes) != 0 {
		t.Fatalf("empty save = %+v, %v", result, err)
	}
}

func TestSearchIsStableWithoutQuery(t *testing.T) {
	ctx := context.Background()
	store := NewRecipeStore(nil, &memoryLocalStore{}, nil)
	if _, err := store.Save(ctx, sampleRecipes()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	first, err := store.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, _ := store.Search(ctx, "  ")
	if len(first) != 3 || !reflect.DeepEqual(first, second) {
		t.Fatalf("searches differ:\n%+v\n%+v", first, second)
	}
}

func TestSearchMatchesLessonName(t *testing.T) {
	ctx := context.Background()
	store := NewRecipeStore(newFakeRemote(), &memoryLocalStore{}, nil)
	if _, err := store.Save(ctx, sampleRecipes()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := store.Search(ctx, "AULA 3")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 recipes for Aula 3, got %+v", found)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.failing = true
	store := NewRecipeStore(remote, &memoryLocalStore{}, nil)

	for range 5 {
		if _, err := store.Search(ctx, ""); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if remote.searched != 3 {
		t.Fatalf("expected the breaker to stop calls after 3 failures, got %d", remote.searched)
	}
}

func TestSyncLocalToRemote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.failing = true
	store := NewRecipeStore(remote, &memoryLocalStore{}, nil)

	if _, err := store.Save(ctx, sampleRecipes()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	remote.failing = false

	synced, err := store.SyncLocalToRemote(ctx)
	if err != nil {
		t.Fatalf("SyncLocalToRemote: %v", err)
	}
	if synced != 3 || len(remote.byID) != 3 {
		t.Fatalf("synced=%d remote=%d", synced, len(remote.byID))
	}

	if _, err := store.SyncLocalToRemote(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(remote.byID) != 3 {
		t.Fatalf("second sync duplicated records: %d", len(remote.byID))
	}
}

func TestSyncWithoutRemoteIsNoop(t *testing.T) {
	store := NewRecipeStore(nil, &memoryLocalStore{}, nil)
	if n, err := store.SyncLocalToRemote(context.Background()); n != 0 || err != nil {
		t.Fatalf("sync = %d, %v", n, err)
	}
}

// hangingRemote never answers; it returns only when its context ends.
type hangingRemote struct{}

func (hangingRemote) Name() string { return "hanging" }

func (hangingRemote) InsertRecipes(ctx context.Context, _ []models.Recipe) error {
	<-ctx.Done()
	return ctx.Err()
}

func (hangingRemote) SearchRecipes(ctx context.Context, _ string) ([]models.Recipe, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// deadlineLocalStore fails like a database driver does once ctx has expired.
type deadlineLocalStore struct {
	memoryLocalStore
}

func (d *deadlineLocalStore) Load(ctx context.Context) ([]models.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.memoryLocalStore.Load(ctx)
}

func (d *deadlineLocalStore) Prepend(ctx context.Context, recipes []models.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.memoryLocalStore.Prepend(ctx, recipes)
}

func TestHungRemoteStillFallsBackToLocal(t *testing.T) {
	local := &deadlineLocalStore{}
	store := NewRecipeStore(hangingRemote{}, local, nil)
	store.remoteTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result, err := store.Save(ctx, sampleRecipes())
	if err != nil {
		t.Fatalf("Save with a hung remote: %v", err)
	}
	if result.Remote || !result.Local {
		t.Fatalf("expected local-only save, got remote=%v local=%v", result.Remote, result.Local)
	}

	found, err := store.Search(ctx, "torta")
	if err != nil {
		t.Fatalf("Search with a hung remote: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Torta" {
		t.Fatalf("search torta = %+v", found)
	}
}

func TestLocalStepSurvivesExpiredCallerContext(t *testing.T) {
	local := &deadlineLocalStore{}
	store := NewRecipeStore(hangingRemote{}, local, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// the remote consumes the whole caller deadline
	if _, err := store.Save(ctx, sampleRecipes()[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatalf("expected the caller deadline to have passed")
	}
	if got, _ := local.memoryLocalStore.Load(context.Background()); len(got) != 1 {
		t.Fatalf("local snapshot has %d recipes, want 1", len(got))
	}
}

func TestSearchReportsUnreadableStorage(t *testing.T) {
	store := NewRecipeStore(nil, &memoryLocalStore{err: errors.New("disk I/O error")}, nil)

	_, err := store.Search(context.Background(), "bolo")
	if !errors.Is(err, models.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}
	if errors.Is(err, models.ErrStorageFailure) {
		t.Fatalf("search error must not read as a save failure: %v", err)
	}
}

// queryRecorder remembers the query the remote was asked for.
type queryRecorder struct {
	fakeRemoteStore
	queries []string
}

func (q *queryRecorder) SearchRecipes(ctx context.Context, query string) ([]models.Recipe, error) {
	q.queries = append(q.queries, query)
	return q.fakeRemoteStore.SearchRecipes(ctx, query)
}

func TestSearchTrimsQueryForBothPaths(t *testing.T) {
	ctx := context.Background()
	remote := &queryRecorder{fakeRemoteStore: fakeRemoteStore{byID: map[string]models.Recipe{}}}
	local := &memoryLocalStore{}
	store := NewRecipeStore(remote, local, nil)
	if _, err := store.Save(ctx, sampleRecipes()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fromRemote, err := store.Search(ctx, "  ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(remote.queries) != 1 || remote.queries[0] != "" {
		t.Fatalf("remote queries = %q, want one empty query", remote.queries)
	}

	remote.failing = true
	fromLocal, err := store.Search(ctx, "  ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(fromRemote) != 3 || len(fromLocal) != 3 {
		t.Fatalf("blank query returned %d remote and %d local recipes, want 3 each", len(fromRemote), len(fromLocal))
	}
}

func TestSaveLeavesInputUntouched(t *testing.T) {
	input := []models.Recipe{{
		Title:       "Pudim",
		Ingredients: []models.IngredientSection{{Items: nil}},
	}}

	store := NewRecipeStore(nil, &memoryLocalStore{}, nil)
	result, err := store.Save(context.Background(), input)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if input[0].ID != "" || input[0].Ingredients[0].SectionName != "" || input[0].Ingredients[0].Items != nil {
		t.Fatalf("Save modified its input: %+v", input[0])
	}
	saved := result.Recipes[0]
	if saved.Ingredients[0].SectionName != models.DefaultSectionName || saved.Ingredients[0].Items == nil {
		t.Fatalf("saved recipe not normalized: %+v", saved)
	}
}
