package models

import (
	"strings"
	"time"
)

const (
	// DefaultSectionName labels ingredients that have no heading in the source.
	DefaultSectionName = "Ingredientes"
	// UntitledRecipe replaces a missing title in an AI reply.
	UntitledRecipe = "untitled recipe"
)

// Recipe is a recipe extracted from a cookbook. ID and CreatedAt are empty until
// the recipe is saved; after that a recipe is never modified.
type Recipe struct {
	ID          string              `bson:"id" json:"id,omitempty"`
	LessonName  string              `bson:"lesson_name" json:"lesson_name"`
	Title       string              `bson:"title" json:"title"`
	Ingredients []IngredientSection `bson:"ingredients" json:"ingredients"`
	Steps       []string            `bson:"steps" json:"steps"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at,omitzero"`
}

// IngredientSection groups ingredients under a heading such as "Massa" or "Recheio".
type IngredientSection struct {
	SectionName string       `bson:"sectionName" json:"sectionName"`
	Items       []Ingredient `bson:"items" json:"items"`
}

// Ingredient quantities stay free text: "1/2", "2-3" and "a gosto" are all valid.
type Ingredient struct {
	Name string `bson:"name" json:"name"`
	Qty  string `bson:"qty" json:"qty"`
	Unit string `bson:"unit" json:"unit"`
}

// Normalize fills the defaults every consumer relies on: non-nil slices, a
// title and a section name.
func (r *Recipe) Normalize() {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = UntitledRecipe
	}
	if r.Ingredients == nil {
		r.Ingredients = []IngredientSection{}
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
	for i := range r.Ingredients {
		if strings.TrimSpace(r.Ingredients[i].SectionName) == "" {
			r.Ingredients[i].SectionName = DefaultSectionName
		}
		if r.Ingredients[i].Items == nil {
			r.Ingredients[i].Items = []Ingredient{}
		}
	}
}

// Clone returns a copy that shares no slices with r.
func (r Recipe) Clone() Recipe {
	if r.Ingredients != nil {
		sections := make([]IngredientSection, len(r.Ingredients))
		for i, section := range r.Ingredients {
			sections[i] = section
			if section.Items != nil {
				sections[i].Items = append([]Ingredient{}, section.Items...)
			}
		}
		r.Ingredients = sections
	}
	if r.Steps != nil {
		r.Steps = append([]string{}, r.Steps...)
	}
	return r
}

// IngredientCount returns the number of ingredients across all sections.
func (r Recipe) IngredientCount() int {
	total := 0
	for _, section := range r.Ingredients {
		total += len(section.Items)
	}
	return total
}

// Matches reports whether query is a case-insensitive substring of the title
// or the lesson name. An empty query matches everything.
func (r Recipe) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), query) ||
		strings.Contains(strings.ToLower(r.LessonName), query)
}

// NormalizeAll normalizes every recipe in place and never returns nil.
func NormalizeAll(recipes []Recipe) []Recipe {
	if recipes == nil {
		return []Recipe{}
	}
	for i := range recipes {
		recipes[i].Normalize()
	}
	return recipes
}
