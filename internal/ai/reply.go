package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chefshelf/internal/logger"
	"chefshelf/models"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseReply turns a raw model reply into normalized recipes. It tries the
// reply as-is, then the contents of a markdown code fence, then the span from
// the first '{' to the last '}'. A blank reply yields no recipes.
func ParseReply(reply string) ([]models.Recipe, error) {
	if strings.TrimSpace(reply) == "" {
		return []models.Recipe{}, nil
	}

	payload, err := decodeReply(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedReply, err)
	}

	raw, err := recipeList(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedReply, err)
	}

	doc, err := json.Marshal(map[string]any{"recipes": sanitizeRecipes(raw)})
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", models.ErrMalformedReply, err)
	}
	if err := ValidateReply(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedReply, err)
	}

	var out struct {
		Recipes []models.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", models.ErrMalformedReply, err)
	}
	return models.NormalizeAll(out.Recipes), nil
}

func decodeReply(reply string) (any, error) {
	text := strings.TrimSpace(reply)

	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return payload, nil
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &payload); err == nil {
			return payload, nil
		}
		text = m[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no json object in reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return payload, nil
}

// recipeList accepts {"recipes": [...]}, a bare array, or a single recipe object.
func recipeList(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		recipes, ok := v["recipes"]
		if !ok {
			if _, hasTitle := v["title"]; hasTitle {
				return []any{v}, nil
			}
			return []any{}, nil
		}
		switch list := recipes.(type) {
		case nil:
			return []any{}, nil
		case []any:
			return list, nil
		case map[string]any:
			return []any{list}, nil
		default:
			return nil, fmt.Errorf("recipes is a %T, want an array", recipes)
		}
	default:
		return nil, fmt.Errorf("reply is a %T, want an object or array", payload)
	}
}

// sanitizeRecipes keeps only known keys, coerces scalars to strings and fills
// the defaults the schema requires.
func sanitizeRecipes(raw []any) []any {
	out := make([]any, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		title := scalarString(m["title"])
		if title == "" {
			title = models.UntitledRecipe
		}
		out = append(out, map[string]any{
			"lesson_name": scalarString(m["lesson_name"]),
			"title":       title,
			"ingredients": sanitizeSections(m["ingredients"]),
			"steps":       sanitizeSteps(m["steps"]),
		})
	}
	if dropped > 0 {
		logger.Warn("ai.reply.dropped_entries", "count", dropped)
	}
	return out
}

func sanitizeSections(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return []any{}
	}

	sections := make([]any, 0, len(list))
	var loose []any
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		// an ingredient listed without a section
		if _, hasItems := m["items"]; !hasItems {
			if _, hasName := m["name"]; hasName {
				loose = append(loose, sanitizeIngredient(m))
				continue
			}
		}
		name := scalarString(m["sectionName"])
		if name == "" {
			name = models.DefaultSectionName
		}
		sections = append(sections, map[string]any{
			"sectionName": name,
			"items":       sanitizeItems(m["items"]),
		})
	}
	if len(loose) > 0 {
		sections = append([]any{map[string]any{
			"sectionName": models.DefaultSectionName,
			"items":       loose,
		}}, sections...)
	}
	return sections
}

func sanitizeItems(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return []any{}
	}
	items := make([]any, 0, len(list))
	for _, entry := range list {
		switch item := entry.(type) {
		case map[string]any:
			items = append(items, sanitizeIngredient(item))
		case string:
			if s := strings.TrimSpace(item); s != "" {
				items = append(items, map[string]any{"name": s, "qty": "", "unit": ""})
			}
		}
	}
	return items
}

func sanitizeIngredient(m map[string]any) map[string]any {
	return map[string]any{
		"name": scalarString(m["name"]),
		"qty":  scalarString(m["qty"]),
		"unit": scalarString(m["unit"]),
	}
}

func sanitizeSteps(v any) []any {
	switch steps := v.(type) {
	case []any:
		out := make([]any, 0, len(steps))
		for _, step := range steps {
			if s := scalarString(step); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(steps); s != "" {
			return []any{s}
		}
	}
	return []any{}
}

// scalarString renders JSON scalars as text; 25 becomes "25", not "25.000000".
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
