package services

import (
	"bytes"
	"testing"
	"time"

	"chefshelf/models"

	"github.com/xuri/excelize/v2"
)

func TestExportWorkbook(t *testing.T) {
	recipes := []models.Recipe{
		{
			ID:         "r1",
			LessonName: "Aula 1",
			Title:      "Bolo de Cenoura",
			Ingredients: []models.IngredientSection{
				{SectionName: "Massa", Items: []models.Ingredient{{Name: "Cenoura", Qty: "3", Unit: "un"}, {Name: "Farinha", Qty: "2", Unit: "xícaras"}}},
				{SectionName: "Cobertura", Items: []models.Ingredient{{Name: "Chocolate", Qty: "200", Unit: "g"}}},
			},
			Steps:     []string{"Bata", "Asse"},
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{ID: "r2", Title: "Pudim"},
	}

	data, err := ExportWorkbook(recipes)
	if err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != RecipesSheet || sheets[1] != IngredientsSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(RecipesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 recipes, got %d rows", len(rows))
	}
	if rows[1][2] != "Bolo de Cenoura" || rows[1][3] != "3" || rows[1][4] != "1. Bata\n2. Asse" {
		t.Fatalf("unexpected recipe row: %q", rows[1])
	}
	if rows[1][5] != "2026-03-01 12:00:00" {
		t.Fatalf("created at = %q", rows[1][5])
	}

	items, err := f.GetRows(IngredientsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected header plus 3 ingredients, got %d rows", len(items))
	}
	if items[3][2] != "Cobertura" || items[3][3] != "Chocolate" || items[3][5] != "g" {
		t.Fatalf("unexpected ingredient row: %q", items[3])
	}
}
