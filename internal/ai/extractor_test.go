package ai

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"chefshelf/models"
)

// scriptedGenerator replays a fixed sequence of replies and errors.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (g *scriptedGenerator) Name() string  { return "scripted" }
func (g *scriptedGenerator) Model() string { return "test-model" }
func (g *scriptedGenerator) Close() error  { return nil }

func (g *scriptedGenerator) GenerateJSON(_ context.Context, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	if len(g.errs) > 0 && g.errs[len(g.errs)-1] != nil {
		return "", g.errs[len(g.errs)-1]
	}
	return `{"recipes":[]}`, nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testSettings() ExtractorSettings {
	return ExtractorSettings{MaxAttempts: 3, RetryBase: time.Millisecond}
}

func TestExtractChunkRetriesRateLimits(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{
			&HTTPError{StatusCode: http.StatusTooManyRequests},
			&HTTPError{StatusCode: http.StatusTooManyRequests},
			nil,
		},
		replies: []string{"", "", plainReply},
	}
	extractor := NewRecipeExtractor(gen, testSettings())

	result, err := extractor.ExtractChunk(context.Background(), "--- PAGE 1 ---\nBolo de Cenoura")
	if err != nil {
		t.Fatalf("ExtractChunk: %v", err)
	}
	if result.Status != ChunkSuccess {
		t.Fatalf("status = %s, want success (err %v)", result.Status, result.Err)
	}
	if result.Attempts != 3 || gen.Calls() != 3 {
		t.Fatalf("attempts = %d, calls = %d, want 3", result.Attempts, gen.Calls())
	}
	if len(result.Recipes) != 1 || result.Recipes[0].Title != "Bolo de Cenoura" {
		t.Fatalf("unexpected recipes: %+v", result.Recipes)
	}
}

func TestExtractChunkGivesUpAfterServerErrors(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{&HTTPError{StatusCode: http.StatusInternalServerError}},
	}
	extractor := NewRecipeExtractor(gen, testSettings())

	result, err := extractor.ExtractChunk(context.Background(), "text")
	if err != nil {
		t.Fatalf("ExtractChunk: %v", err)
	}
	if result.Status != ChunkFailed || len(result.Recipes) != 0 || result.Recipes == nil {
		t.Fatalf("expected failed empty result, got %+v", result)
	}
	if gen.Calls() != 3 {
		t.Fatalf("calls = %d, want exactly 3", gen.Calls())
	}
	if !errors.Is(result.Err, models.ErrTransientAPI) {
		t.Fatalf("result error = %v, want ErrTransientAPI", result.Err)
	}
}

func TestExtractChunkDoesNotRetryClientErrors(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{&HTTPError{StatusCode: http.StatusBadRequest, Message: "prompt too long"}},
	}
	extractor := NewRecipeExtractor(gen, testSettings())

	result, err := extractor.ExtractChunk(context.Background(), "text")
	if err != nil {
		t.Fatalf("ExtractChunk: %v", err)
	}
	if result.Status != ChunkFailed || gen.Calls() != 1 {
		t.Fatalf("status = %s after %d calls, want failed after 1", result.Status, gen.Calls())
	}
}

func TestExtractChunkMalformedReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"no json here, sorry"}}
	extractor := NewRecipeExtractor(gen, testSettings())

	result, err := extractor.ExtractChunk(context.Background(), "text")
	if err != nil {
		t.Fatalf("malformed reply must not be an error, got %v", err)
	}
	if len(result.Recipes) != 0 {
		t.Fatalf("expected no recipes, got %+v", result.Recipes)
	}
	if !errors.Is(result.Err, models.ErrMalformedReply) {
		t.Fatalf("result error = %v, want ErrMalformedReply", result.Err)
	}
	if gen.Calls() != 1 {
		t.Fatalf("malformed replies are not retried, got %d calls", gen.Calls())
	}
}

func TestExtractChunkEmpty(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{`{"recipes":[]}`}}
	extractor := NewRecipeExtractor(gen, testSettings())

	result, err := extractor.ExtractChunk(context.Background(), "índice")
	if err != nil {
		t.Fatalf("ExtractChunk: %v", err)
	}
	if result.Status != ChunkEmpty {
		t.Fatalf("status = %s, want empty", result.Status)
	}
}

func TestExtractChunkConfiguration(t *testing.T) {
	t.Run("no generator", func(t *testing.T) {
		extractor := NewRecipeExtractor(nil, testSettings())
		_, err := extractor.ExtractChunk(context.Background(), "text")
		if !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("error = %v, want ErrConfiguration", err)
		}
	})

	cases := []struct {
		name string
		err  error
	}{
		{"unauthorized", &HTTPError{StatusCode: http.StatusUnauthorized}},
		{"forbidden", &HTTPError{StatusCode: http.StatusForbidden}},
		{"invalid key", &HTTPError{StatusCode: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &scriptedGenerator{errs: []error{tc.err}}
			extractor := NewRecipeExtractor(gen, testSettings())
			_, err := extractor.ExtractChunk(context.Background(), "text")
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
			if gen.Calls() != 1 {
				t.Fatalf("credential errors are not retried, got %d calls", gen.Calls())
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &HTTPError{StatusCode: 503})
	if got := StatusCode(wrapped); got != 503 {
		t.Fatalf("StatusCode = %d, want 503", got)
	}
	if got := StatusCode(errors.New("plain")); got != 0 {
		t.Fatalf("StatusCode = %d, want 0", got)
	}
}
