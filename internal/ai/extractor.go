package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// ChunkStatus is the outcome of extracting one chunk.
type ChunkStatus string

const (
	ChunkSuccess ChunkStatus = "success"
	ChunkEmpty   ChunkStatus = "empty"
	ChunkFailed  ChunkStatus = "failed"
)

// ChunkResult is what ExtractChunk produced for one chunk. Recipes is never
// nil. Err records why a failed chunk failed; it is informational only.
type ChunkResult struct {
	Status   ChunkStatus
	Recipes  []models.Recipe
	Attempts int
	Err      error
}

// ExtractorSettings tunes retries and pacing.
type ExtractorSettings struct {
	MaxAttempts       int
	RetryBase         time.Duration
	RequestsPerMinute int
}

// RecipeExtractor sends chunks to a Generator with retry and backoff.
type RecipeExtractor struct {
	generator   Generator
	limiter     *rate.Limiter
	maxAttempts int
	retryBase   time.Duration
}

// NewRecipeExtractor wraps gen. A nil gen is allowed; every extraction then
// fails with ErrConfiguration.
func NewRecipeExtractor(gen Generator, settings ExtractorSettings) *RecipeExtractor {
	limit := rate.Inf
	burst := 1
	if settings.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(settings.RequestsPerMinute) / 60.0)
		burst = max(settings.RequestsPerMinute/10, 1)
	}
	return &RecipeExtractor{
		generator:   gen,
		limiter:     rate.NewLimiter(limit, burst),
		maxAttempts: max(settings.MaxAttempts, 1),
		retryBase:   settings.RetryBase,
	}
}

// SettingsFromConfig reads extractor settings from the loaded config.
func SettingsFromConfig(cfg *config.Config) ExtractorSettings {
	return ExtractorSettings{
		MaxAttempts:       cfg.AIMaxAttempts,
		RetryBase:         cfg.AIRetryBase,
		RequestsPerMinute: cfg.AIRequestsPerMinute,
	}
}

// Provider names the generator in use, or "" when none is configured.
func (e *RecipeExtractor) Provider() string {
	if e == nil || e.generator == nil {
		return ""
	}
	return e.generator.Name()
}

// Model names the model in use, or "" when none is configured.
func (e *RecipeExtractor) Model() string {
	if e == nil || e.generator == nil {
		return ""
	}
	return e.generator.Model()
}

// ExtractChunk extracts the recipes in one chunk of page text. Rate limits and
// server errors are retried with a linear delay of RetryBase times the attempt
// number. Only ErrConfiguration is returned as an error; every other failure
// is folded into a failed ChunkResult with no recipes.
func (e *RecipeExtractor) ExtractChunk(ctx context.Context, text string) (ChunkResult, error) {
	if e == nil || e.generator == nil {
		return failedChunk(0, models.ErrConfiguration),
			fmt.Errorf("%w: no AI credential configured; %s", models.ErrConfiguration, MissingKeyHint)
	}

	ctx, span := otel.Tracer("chefshelf/ai").Start(ctx, "ai.extract_chunk")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", e.generator.Name()),
		attribute.String("ai.model", e.generator.Model()),
		attribute.Int("chunk.chars", len(text)),
	)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		attempts = attempt
		reply, err := e.generator.GenerateJSON(ctx, SystemInstruction, text)
		if err == nil {
			result := parsedChunk(reply, attempt)
			span.SetAttributes(
				attribute.Int("chunk.attempts", attempt),
				attribute.String("chunk.status", string(result.Status)),
				attribute.Int("chunk.recipes", len(result.Recipes)),
			)
			return result, nil
		}

		err = classify(err)
		if errors.Is(err, models.ErrConfiguration) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "credential rejected")
			return failedChunk(attempt, err), err
		}

		lastErr = err
		if !errors.Is(err, models.ErrTransientAPI) || attempt == e.maxAttempts {
			break
		}

		delay := e.retryBase * time.Duration(attempt)
		logger.Warn("ai.chunk.retry",
			"attempt", attempt,
			"max_attempts", e.maxAttempts,
			"delay_ms", delay.Milliseconds(),
			"status", StatusCode(err),
		)
		if err := sleepContext(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	logger.Error("ai.chunk.failed", "attempts", attempts, "error", lastErr)
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "chunk extraction failed")
	span.SetAttributes(
		attribute.Int("chunk.attempts", attempts),
		attribute.String("chunk.status", string(ChunkFailed)),
	)
	return failedChunk(attempts, lastErr), nil
}

func parsedChunk(reply string, attempts int) ChunkResult {
	recipes, err := ParseReply(reply)
	if err != nil {
		logger.Warn("ai.chunk.malformed_reply", "error", err, "reply_chars", len(reply))
		return failedChunk(attempts, err)
	}
	if len(recipes) == 0 {
		return ChunkResult{Status: ChunkEmpty, Recipes: []models.Recipe{}, Attempts: attempts}
	}
	return ChunkResult{Status: ChunkSuccess, Recipes: recipes, Attempts: attempts}
}

func failedChunk(attempts int, err error) ChunkResult {
	return ChunkResult{Status: ChunkFailed, Recipes: []models.Recipe{}, Attempts: attempts, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
