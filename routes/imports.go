package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/internal/queue"
	"chefshelf/middleware"
	"chefshelf/models"
	"chefshelf/services"
	"chefshelf/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is satisfied by *asynq.Inspector.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// ImportDeps wires the import endpoints. Queue and Inspector are nil when
// Redis is not configured.
type ImportDeps struct {
	Config    *config.Config
	Importer  queue.DocumentImporter
	Store     RecipeGateway
	Queue     TaskEnqueuer
	Inspector TaskInspector
}

func SetupImportRoutes(router *gin.Engine, deps ImportDeps) {
	api := router.Group("/api/imports")
	api.Use(middleware.RequestSizeLimit(deps.Config.MaxFileSize * 4))
	{
		api.POST("", importRecipes(deps))
		api.POST("/async", enqueueImports(deps))
		api.GET("/:taskID", importStatus(deps))
	}
}

// outcome is the final response of an import, sent either as JSON or as the
// last server-sent event.
type outcome struct {
	status int
	body   interface{}
}

func importRecipes(deps ImportDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, ok := readUploads(c, deps.Config.MaxFileSize)
		if !ok {
			return
		}
		dedupe := wantDedupe(c, deps.Config)

		if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
			result := runImport(c.Request.Context(), deps, docs, dedupe, nil)
			c.JSON(result.status, result.body)
			return
		}

		streamImport(c, deps, docs, dedupe)
	}
}

// streamImport sends progress messages as "progress" events followed by a
// single "result" event carrying the same body the JSON endpoint returns.
func streamImport(c *gin.Context, deps ImportDeps, docs []models.PDFDocument, dedupe bool) {
	ctx := c.Request.Context()
	type event struct {
		name string
		data interface{}
	}
	events := make(chan event)

	go func() {
		defer close(events)
		send := func(ev event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		progress := func(message string) {
			send(event{name: "progress", data: gin.H{"message": message}})
		}
		result := runImport(ctx, deps, docs, dedupe, progress)
		send(event{name: "result", data: gin.H{"status": result.status, "body": result.body}})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for ev := range events {
		c.SSEvent(ev.name, ev.data)
		c.Writer.Flush()
	}
}

func runImport(ctx context.Context, deps ImportDeps, docs []models.PDFDocument, dedupe bool, progress services.ProgressFunc) outcome {
	result, err := deps.Importer.ImportDocuments(ctx, docs, progress)
	if err != nil {
		logger.Warn("http.import.failed", "files", len(docs), "error", err)
		return errorOutcome(err)
	}

	recipes := result.Recipes
	if dedupe {
		recipes = services.DedupeByTitle(recipes)
	}

	if len(recipes) == 0 {
		code := "no_recipes_found"
		message := "No recipes were found in the uploaded files"
		if result.FailedFiles() > 0 {
			code = "processing_failed"
			message = "The uploaded files could not be processed"
		}
		return outcome{http.StatusUnprocessableEntity, utils.ErrorResponse{
			ErrorCode: code,
			Message:   message,
			Details:   gin.H{"files": result.Files},
		}}
	}

	saved, err := deps.Store.Save(ctx, recipes)
	if err != nil {
		logger.Error("http.import.save_failed", "recipes", len(recipes), "error", err)
		return errorOutcome(err)
	}

	return outcome{http.StatusOK, models.ImportResponse{
		Recipes: saved.Recipes,
		Files:   result.Files,
		Saved:   true,
		Message: fmt.Sprintf("%d recipes imported from %d files", len(saved.Recipes), len(docs)),
	}}
}

func errorOutcome(err error) outcome {
	status, body := utils.ClassifyImportError(err)
	return outcome{status, body}
}

func enqueueImports(deps ImportDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Queue == nil {
			utils.RespondWithQueueUnavailable(c)
			return
		}

		docs, ok := readUploads(c, deps.Config.MaxFileSize)
		if !ok {
			return
		}
		dedupe := wantDedupe(c, deps.Config)

		uploadDir := filepath.Join(deps.Config.FileStorageDir, "uploads")
		if err := os.MkdirAll(uploadDir, 0755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create upload directory", err.Error())
			return
		}

		tasks := make([]gin.H, 0, len(docs))
		for _, doc := range docs {
			filePath := filepath.Join(uploadDir, uuid.NewString()+".pdf")
			if err := os.WriteFile(filePath, doc.Content, 0600); err != nil {
				utils.RespondWithInternalError(c, "Failed to save file", err.Error())
				return
			}

			task, err := queue.NewImportTask(filePath, doc.Name, dedupe)
			if err != nil {
				os.Remove(filePath)
				utils.RespondWithInternalError(c, "Failed to create processing task", err.Error())
				return
			}
			ctx, cancel := utils.WithQueueTimeout(c.Request.Context())
			info, err := deps.Queue.EnqueueContext(ctx, task)
			cancel()
			if err != nil {
				os.Remove(filePath)
				utils.RespondWithInternalError(c, "Failed to enqueue processing task", err.Error())
				return
			}

			tasks = append(tasks, gin.H{
				"task_id":  info.ID,
				"filename": doc.Name,
				"status":   models.StatusPending,
			})
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message": "Files accepted for processing",
			"tasks":   tasks,
		})
	}
}

func importStatus(deps ImportDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Inspector == nil {
			utils.RespondWithQueueUnavailable(c)
			return
		}

		info, err := deps.Inspector.GetTaskInfo(queue.ImportQueue, c.Param("taskID"))
		if err != nil {
			if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
				utils.RespondWithNotFound(c, "Import task not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to read task state", err.Error())
			return
		}

		var payload queue.ImportPayload
		_ = json.Unmarshal(info.Payload, &payload)

		response := gin.H{
			"task_id":   info.ID,
			"filename":  payload.Filename,
			"state":     info.State.String(),
			"retried":   info.Retried,
			"max_retry": info.MaxRetry,
		}
		if info.LastErr != "" {
			response["last_error"] = info.LastErr
		}
		if !info.CompletedAt.IsZero() {
			response["completed_at"] = info.CompletedAt
		}
		if len(info.Result) > 0 {
			response["result"] = json.RawMessage(info.Result)
		}
		c.JSON(http.StatusOK, response)
	}
}

// readUploads loads every "pdf" part of the multipart form. It writes the
// error response itself and reports false when the request is unusable.
func readUploads(c *gin.Context, maxFileSize int64) ([]models.PDFDocument, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.RespondWithBadRequest(c, "", "Expected a multipart form with one or more \"pdf\" files", err.Error())
		return nil, false
	}

	headers := form.File["pdf"]
	if len(headers) == 0 {
		utils.RespondWithBadRequest(c, "no_file", "No PDF file provided", nil)
		return nil, false
	}

	docs := make([]models.PDFDocument, 0, len(headers))
	for _, header := range headers {
		if !isPDFUpload(header) {
			utils.RespondWithBadRequest(c, "invalid_file_type",
				"Only PDF files are allowed", gin.H{"filename": header.Filename})
			return nil, false
		}
		if header.Size > maxFileSize {
			utils.RespondWithBadRequest(c, "file_too_large",
				"File size exceeds maximum limit", gin.H{"filename": header.Filename, "max_size_mb": maxFileSize / (1024 * 1024)})
			return nil, false
		}

		content, err := readUpload(header)
		if err != nil {
			utils.RespondWithBadRequest(c, "", "Cannot read uploaded file", gin.H{"filename": header.Filename, "error": err.Error()})
			return nil, false
		}
		docs = append(docs, models.PDFDocument{Name: header.Filename, Content: content})
	}
	return docs, true
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func isPDFUpload(header *multipart.FileHeader) bool {
	ct := header.Header.Get("Content-Type")
	return strings.Contains(ct, "pdf") || strings.HasSuffix(strings.ToLower(header.Filename), ".pdf")
}

// wantDedupe lets ?dedupe= override DEDUPE_BY_TITLE.
func wantDedupe(c *gin.Context, cfg *config.Config) bool {
	if v, err := strconv.ParseBool(c.Query("dedupe")); err == nil {
		return v
	}
	return cfg.DedupeByTitle
}
