package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chefshelf/internal/config"
	"chefshelf/models"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// MissingKeyHint tells the operator how to fix a missing credential.
const MissingKeyHint = "set GEMINI_API_KEY (or OPENAI_API_KEY)"

// Generator sends a system instruction plus one chunk of text to a language
// model and returns the raw reply text, which should contain JSON.
type Generator interface {
	Name() string
	Model() string
	GenerateJSON(ctx context.Context, instruction, prompt string) (string, error)
	Close() error
}

// NewGenerator builds the generator selected by AI_PROVIDER. It returns a nil
// generator and no error when no credential is configured; extraction reports
// that as ErrConfiguration when it is first attempted.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	if !cfg.AIConfigured() {
		return nil, nil
	}

	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, ""), nil
	case config.ProviderGeminiREST:
		return NewRESTClient(cfg.GeminiAPIKey, cfg.GeminiAPIURL, cfg.GeminiModel), nil
	default:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AIStrictSchema)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
		}
		return client, nil
	}
}

// HTTPError is a non-2xx reply from a provider reached over plain HTTP.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ai provider returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("ai provider returned %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the HTTP status carried by a generator error, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// classify maps a provider error onto the pipeline's sentinels. Rate limits and
// server errors become ErrTransientAPI; rejected credentials become
// ErrConfiguration; everything else is returned unchanged.
func classify(err error) error {
	code := StatusCode(err)
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: credential rejected (%v); %s", models.ErrConfiguration, err, MissingKeyHint)
	case code == http.StatusBadRequest && mentionsAPIKey(err):
		return fmt.Errorf("%w: invalid api key (%v); %s", models.ErrConfiguration, err, MissingKeyHint)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", models.ErrTransientAPI, err)
	}
	return err
}

func mentionsAPIKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key")
}
