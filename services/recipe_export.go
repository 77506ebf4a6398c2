package services

import (
	"fmt"
	"strings"

	"chefshelf/internal/logger"
	"chefshelf/models"

	"github.com/xuri/excelize/v2"
)

const (
	RecipesSheet     = "Receitas"
	IngredientsSheet = "Ingredientes"
	XLSXContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportWorkbook renders recipes as an XLSX workbook with one row per recipe
// and a second sheet with one row per ingredient.
func ExportWorkbook(recipes []models.Recipe) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("export.close_failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", RecipesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(IngredientsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	recipeHeaders := []interface{}{"ID", "Aula", "Título", "Ingredientes", "Modo de preparo", "Criado em"}
	if err := f.SetSheetRow(RecipesSheet, "A1", &recipeHeaders); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	ingredientHeaders := []interface{}{"Receita ID", "Receita", "Seção", "Ingrediente", "Qtd", "Unidade"}
	if err := f.SetSheetRow(IngredientsSheet, "A1", &ingredientHeaders); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	ingredientRow := 2
	for i, r := range recipes {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{r.ID, r.LessonName, r.Title, r.IngredientCount(), numberedSteps(r.Steps), created}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(RecipesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write recipe row: %w", err)
		}

		for _, section := range r.Ingredients {
			for _, item := range section.Items {
				line := []interface{}{r.ID, r.Title, section.SectionName, item.Name, item.Qty, item.Unit}
				cell, _ := excelize.CoordinatesToCellName(1, ingredientRow)
				if err := f.SetSheetRow(IngredientsSheet, cell, &line); err != nil {
					return nil, fmt.Errorf("failed to write ingredient row: %w", err)
				}
				ingredientRow++
			}
		}
	}

	_ = f.SetColWidth(RecipesSheet, "A", "A", 38)
	_ = f.SetColWidth(RecipesSheet, "B", "C", 30)
	_ = f.SetColWidth(RecipesSheet, "E", "E", 80)
	_ = f.SetColWidth(IngredientsSheet, "A", "A", 38)
	_ = f.SetColWidth(IngredientsSheet, "B", "D", 25)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func numberedSteps(steps []string) string {
	lines := make([]string, len(steps))
	for i, step := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, step)
	}
	return strings.Join(lines, "\n")
}
