package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"chefshelf/internal/logger"
	"chefshelf/models"
	"chefshelf/services"

	"github.com/hibiken/asynq"
)

const (
	TaskImportRecipes = "recipes:import"
	// ImportQueue is the asynq queue import tasks are enqueued on.
	ImportQueue = "imports"
)

type ImportPayload struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	Dedupe   bool   `json:"dedupe"`
}

// ImportSummary is written as the task result.
type ImportSummary struct {
	File    models.FileReport `json:"file"`
	Recipes []models.Recipe   `json:"recipes"`
	Saved   int               `json:"saved"`
	Remote  bool              `json:"remote"`
	Local   bool              `json:"local"`
}

// NewImportTask creates a task importing the PDF stored at filePath.
func NewImportTask(filePath, filename string, dedupe bool) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportPayload{
		FilePath: filePath,
		Filename: filename,
		Dedupe:   dedupe,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskImportRecipes,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Queue(ImportQueue),
	), nil
}

// DocumentImporter runs the extraction pipeline over uploaded documents.
type DocumentImporter interface {
	ImportDocuments(ctx context.Context, docs []models.PDFDocument, progress services.ProgressFunc) (*services.ImportResult, error)
}

// RecipeSaver persists extracted recipes.
type RecipeSaver interface {
	Save(ctx context.Context, recipes []models.Recipe) (*services.SaveResult, error)
}

type TaskProcessor struct {
	importer DocumentImporter
	store    RecipeSaver
}

func NewTaskProcessor(importer DocumentImporter, store RecipeSaver) *TaskProcessor {
	return &TaskProcessor{
		importer: importer,
		store:    store,
	}
}

// ImportRecipes handles TaskImportRecipes. Errors that another attempt cannot
// fix are wrapped in asynq.SkipRetry; the stored upload is removed once the
// task reaches a final state.
func (p *TaskProcessor) ImportRecipes(ctx context.Context, t *asynq.Task) error {
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("queue.import.started", "file", payload.Filename)

	content, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return fmt.Errorf("read upload %s: %v: %w", payload.Filename, err, asynq.SkipRetry)
	}

	summary, err := p.importFile(ctx, payload, content)
	if err != nil {
		if errors.Is(err, asynq.SkipRetry) {
			removeUpload(payload.FilePath)
		}
		logger.Warn("queue.import.failed", "file", payload.Filename, "error", err)
		return err
	}

	if w := t.ResultWriter(); w != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			logger.Warn("queue.import.result_write_failed", "file", payload.Filename, "error", err)
		}
	}
	removeUpload(payload.FilePath)

	logger.Info("queue.import.completed", "file", payload.Filename, "recipes", len(summary.Recipes), "saved", summary.Saved)
	return nil
}

func (p *TaskProcessor) importFile(ctx context.Context, payload ImportPayload, content []byte) (*ImportSummary, error) {
	docs := []models.PDFDocument{{Name: payload.Filename, Content: content}}
	progress := func(message string) {
		logger.Debug("queue.import.progress", "file", payload.Filename, "message", message)
	}

	result, err := p.importer.ImportDocuments(ctx, docs, progress)
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			return nil, fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return nil, err
	}

	file := result.Files[0]
	if file.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%s %s: %s: %w", payload.Filename, file.Status, file.Error, asynq.SkipRetry)
	}

	recipes := result.Recipes
	if payload.Dedupe {
		recipes = services.DedupeByTitle(recipes)
	}

	summary := &ImportSummary{File: file, Recipes: recipes}
	if len(recipes) == 0 {
		return summary, nil
	}

	saved, err := p.store.Save(ctx, recipes)
	if err != nil {
		return nil, err
	}
	summary.Recipes = saved.Recipes
	summary.Saved = len(saved.Recipes)
	summary.Remote = saved.Remote
	summary.Local = saved.Local
	return summary, nil
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("queue.import.cleanup_failed", "path", path, "error", err)
	}
}
