package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecipeReplySchema describes the normalized reply: {"recipes": [...]}.
func RecipeReplySchema() map[string]any {
	str := map[string]any{"type": "string"}

	ingredient := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "qty", "unit"},
		"properties": map[string]any{
			"name": str,
			"qty":  str,
			"unit": str,
		},
	}

	section := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"sectionName", "items"},
		"properties": map[string]any{
			"sectionName": map[string]any{"type": "string", "minLength": 1},
			"items":       map[string]any{"type": "array", "items": ingredient},
		},
	}

	recipe := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"lesson_name", "title", "ingredients", "steps"},
		"properties": map[string]any{
			"lesson_name": str,
			"title":       map[string]any{"type": "string", "minLength": 1},
			"ingredients": map[string]any{"type": "array", "items": section},
			"steps":       map[string]any{"type": "array", "items": str},
		},
	}

	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"recipes"},
		"properties": map[string]any{
			"recipes": map[string]any{"type": "array", "items": recipe},
		},
	}
}

var (
	replySchemaOnce sync.Once
	replySchema     *jsonschema.Schema
	replySchemaErr  error
)

func compiledReplySchema() (*jsonschema.Schema, error) {
	replySchemaOnce.Do(func() {
		b, err := json.Marshal(RecipeReplySchema())
		if err != nil {
			replySchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("recipes.json", bytes.NewReader(b)); err != nil {
			replySchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		replySchema, replySchemaErr = compiler.Compile("recipes.json")
	})
	return replySchema, replySchemaErr
}

// ValidateReply checks a normalized reply document against RecipeReplySchema.
func ValidateReply(data []byte) error {
	schema, err := compiledReplySchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
