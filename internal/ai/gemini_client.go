package ai

import (
	"context"
	"errors"
	"strings"

	"chefshelf/internal/logger"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient calls Gemini through the official Go SDK.
type GeminiClient struct {
	client       *genai.Client
	model        string
	strictSchema bool
}

func NewGeminiClient(ctx context.Context, apiKey, model string, strictSchema bool) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:       client,
		model:        model,
		strictSchema: strictSchema,
	}, nil
}

func (gc *GeminiClient) Name() string  { return "gemini" }
func (gc *GeminiClient) Model() string { return gc.model }

// GenerateJSON asks for an application/json reply. In strict mode the reply
// shape is also constrained by a response schema.
func (gc *GeminiClient) GenerateJSON(ctx context.Context, instruction, prompt string) (string, error) {
	model := gc.client.GenerativeModel(gc.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.1)
	if gc.strictSchema {
		model.ResponseSchema = recipeResponseSchema()
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		logger.Debug("ai.gemini.usage",
			"model", gc.model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"total_tokens", resp.UsageMetadata.TotalTokenCount,
		)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("gemini returned no candidates")
	}
	return text, nil
}

func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// the first candidate with content is the answer
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func recipeResponseSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	ingredient := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": str,
			"qty":  str,
			"unit": str,
		},
		Required: []string{"name", "qty", "unit"},
	}
	section := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sectionName": str,
			"items":       {Type: genai.TypeArray, Items: ingredient},
		},
		Required: []string{"sectionName", "items"},
	}
	recipe := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"lesson_name": str,
			"title":       str,
			"ingredients": {Type: genai.TypeArray, Items: section},
			"steps":       {Type: genai.TypeArray, Items: str},
		},
		Required: []string{"title", "ingredients", "steps"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"recipes": {Type: genai.TypeArray, Items: recipe},
		},
		Required: []string{"recipes"},
	}
}
