package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chefshelf/internal/ai"
	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/internal/telemetry"
	"chefshelf/models"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives human-readable progress messages. It may be nil.
type ProgressFunc func(message string)

// ChunkExtractor extracts the recipes from one chunk of text.
type ChunkExtractor interface {
	ExtractChunk(ctx context.Context, text string) (ai.ChunkResult, error)
	Provider() string
	Model() string
}

// PageExtractor turns PDF bytes into page texts.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) (*models.ExtractedPDF, error)
}

// DocumentResult is the aggregated outcome of one document.
type DocumentResult struct {
	Recipes       []models.Recipe
	Chunks        int
	SuccessChunks int
	EmptyChunks   int
	FailedChunks  int
}

// ImportResult is the outcome of a multi-document import.
type ImportResult struct {
	Recipes []models.Recipe
	Files   []models.FileReport
}

// FailedFiles counts files that did not complete.
func (r *ImportResult) FailedFiles() int {
	failed := 0
	for _, f := range r.Files {
		if f.Status != models.StatusCompleted {
			failed++
		}
	}
	return failed
}

// RecipeImporter runs the extraction pipeline: pages, chunks, batches of
// concurrent model calls, aggregation.
type RecipeImporter struct {
	pages         PageExtractor
	extractor     ChunkExtractor
	cache         ChunkCache
	metrics       *telemetry.Metrics
	chunkPages    int
	batchSize     int
	batchPause    time.Duration
	minTextLength int
}

// NewRecipeImporter wires the pipeline. cache and metrics may be nil.
func NewRecipeImporter(cfg *config.Config, pages PageExtractor, extractor ChunkExtractor, cache ChunkCache, metrics *telemetry.Metrics) *RecipeImporter {
	return &RecipeImporter{
		pages:         pages,
		extractor:     extractor,
		cache:         cache,
		metrics:       metrics,
		chunkPages:    cfg.ChunkPages,
		batchSize:     cfg.BatchSize,
		batchPause:    cfg.BatchPause,
		minTextLength: cfg.MinTextLength,
	}
}

// ExtractRecipes extracts every recipe from one document's page texts. Chunks
// within a batch run concurrently; batches run one after another with a pause
// in between. Recipes come back in chunk order. Failed chunks are counted but
// do not fail the document; only ErrScannedDocument, ErrConfiguration and
// context cancellation are returned as errors.
func (im *RecipeImporter) ExtractRecipes(ctx context.Context, pages []string, progress ProgressFunc) (*DocumentResult, error) {
	if n := TextLength(pages); n < im.minTextLength {
		return nil, fmt.Errorf("%w (%d characters of text)", models.ErrScannedDocument, n)
	}

	chunks := ChunkPages(pages, im.chunkPages)
	batches := BatchChunks(len(chunks), im.batchSize)
	report(progress, fmt.Sprintf("preparing %d parts for analysis", len(chunks)))

	results := make([]ai.ChunkResult, len(chunks))
	for bi, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range batch {
			g.Go(func() error {
				result, err := im.extractChunk(gctx, chunks[idx])
				if err != nil {
					return err
				}
				results[idx] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report(progress, batchMessage(bi+1, len(batches), batch))

		if bi < len(batches)-1 {
			if err := pause(ctx, im.batchPause); err != nil {
				return nil, err
			}
		}
	}

	doc := &DocumentResult{Recipes: []models.Recipe{}, Chunks: len(chunks)}
	for _, result := range results {
		switch result.Status {
		case ai.ChunkSuccess:
			doc.SuccessChunks++
		case ai.ChunkEmpty:
			doc.EmptyChunks++
		default:
			doc.FailedChunks++
		}
		doc.Recipes = append(doc.Recipes, result.Recipes...)
	}
	im.metrics.RecordRecipes(len(doc.Recipes))
	return doc, nil
}

// ImportDocuments processes documents one at a time. A document that cannot
// be read is reported and skipped; ErrConfiguration stops the whole import.
func (im *RecipeImporter) ImportDocuments(ctx context.Context, docs []models.PDFDocument, progress ProgressFunc) (*ImportResult, error) {
	result := &ImportResult{
		Recipes: []models.Recipe{},
		Files:   make([]models.FileReport, 0, len(docs)),
	}

	for i, doc := range docs {
		fileProgress := progress
		if len(docs) > 1 && progress != nil {
			prefix := fmt.Sprintf("[file %d/%d] ", i+1, len(docs))
			fileProgress = func(message string) { progress(prefix + message) }
		}

		fileReport, recipes, err := im.importDocument(ctx, doc, fileProgress)
		if err != nil {
			return nil, err
		}
		result.Files = append(result.Files, fileReport)
		result.Recipes = append(result.Recipes, recipes...)
	}
	return result, nil
}

func (im *RecipeImporter) importDocument(ctx context.Context, doc models.PDFDocument, progress ProgressFunc) (models.FileReport, []models.Recipe, error) {
	fileReport := models.FileReport{Filename: doc.Name, Status: models.StatusProcessing}
	start := time.Now()

	report(progress, "reading "+doc.Name)
	extracted, err := im.pages.ExtractPages(ctx, doc.Content)
	if err != nil {
		im.metrics.RecordPDFProcessing(time.Since(start).Seconds(), models.StatusFailed)
		return im.fileFailure(ctx, fileReport, err, progress)
	}
	fileReport.Pages = extracted.PageCount

	docResult, err := im.ExtractRecipes(ctx, extracted.Pages, progress)
	if err != nil {
		im.metrics.RecordPDFProcessing(time.Since(start).Seconds(), models.StatusFailed)
		return im.fileFailure(ctx, fileReport, err, progress)
	}

	fileReport.Chunks = docResult.Chunks
	fileReport.EmptyChunks = docResult.EmptyChunks
	fileReport.FailedChunks = docResult.FailedChunks
	fileReport.Recipes = len(docResult.Recipes)
	fileReport.Status = models.StatusCompleted
	im.metrics.RecordPDFProcessing(time.Since(start).Seconds(), models.StatusCompleted)

	logger.Info("import.document.completed",
		"file", doc.Name,
		"pages", fileReport.Pages,
		"chunks", fileReport.Chunks,
		"failed_chunks", fileReport.FailedChunks,
		"recipes", fileReport.Recipes,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	report(progress, fmt.Sprintf("found %d recipes in %s", fileReport.Recipes, doc.Name))
	return fileReport, docResult.Recipes, nil
}

// fileFailure records a file-scoped error and lets the import continue; any
// other error is returned.
func (im *RecipeImporter) fileFailure(ctx context.Context, fileReport models.FileReport, err error, progress ProgressFunc) (models.FileReport, []models.Recipe, error) {
	if !models.IsFileScoped(err) || ctx.Err() != nil {
		return fileReport, nil, err
	}

	fileReport.Status = models.StatusFailed
	if errors.Is(err, models.ErrScannedDocument) {
		fileReport.Status = models.StatusSkipped
	}
	fileReport.Error = err.Error()

	logger.Warn("import.document.failed", "file", fileReport.Filename, "error", err)
	report(progress, fmt.Sprintf("skipping %s: %v", fileReport.Filename, err))
	return fileReport, []models.Recipe{}, nil
}

func (im *RecipeImporter) extractChunk(ctx context.Context, chunk TextChunk) (ai.ChunkResult, error) {
	var key string
	if im.cache != nil {
		key = ChunkCacheKey(im.extractor.Provider(), im.extractor.Model(), chunk.Text)
		if recipes, ok := im.cache.Get(ctx, key); ok {
			status := ai.ChunkSuccess
			if len(recipes) == 0 {
				status = ai.ChunkEmpty
			}
			logger.Debug("import.chunk.cache_hit", "chunk", chunk.Index)
			return ai.ChunkResult{Status: status, Recipes: recipes}, nil
		}
	}

	result, err := im.extractor.ExtractChunk(ctx, chunk.Text)
	if err != nil {
		return result, err
	}
	im.metrics.RecordChunk(im.extractor.Provider(), string(result.Status), result.Attempts)

	if result.Status == ai.ChunkFailed {
		logger.Warn("import.chunk.failed",
			"chunk", chunk.Index,
			"pages", fmt.Sprintf("%d-%d", chunk.FirstPage, chunk.LastPage),
			"error", result.Err,
		)
	} else if im.cache != nil {
		im.cache.Set(ctx, key, result.Recipes)
	}
	return result, nil
}

// batchMessage renders "batch 2 of 5 processing parts 3,4,5" with 1-based part numbers.
func batchMessage(batch, total int, indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return fmt.Sprintf("batch %d of %d processing parts %s", batch, total, strings.Join(parts, ","))
}

func report(progress ProgressFunc, message string) {
	if progress != nil {
		progress(message)
	}
}

func pause(ctx context.Context, d time.Duration) error {
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
