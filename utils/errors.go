package utils

import (
	"context"
	"errors"
	"net/http"

	"chefshelf/internal/ai"
	"chefshelf/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest rejects an unusable request. errorCode narrows the
// generic bad_request when the caller can say what was wrong with the upload.
func RespondWithBadRequest(c *gin.Context, errorCode, message string, details interface{}) {
	if errorCode == "" {
		errorCode = "bad_request"
	}
	RespondWithError(c, http.StatusBadRequest, errorCode, message, details)
}

func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithQueueUnavailable answers background-import calls made while no
// Redis queue is configured.
func RespondWithQueueUnavailable(c *gin.Context) {
	RespondWithError(c, http.StatusServiceUnavailable, "queue_unavailable",
		"Background imports need REDIS_URL to be configured", nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// ClassifyImportError maps an import or storage error onto a status and body.
// A missing or rejected AI credential carries the remediation hint.
func ClassifyImportError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusServiceUnavailable, ErrorResponse{
			ErrorCode: "configuration_error",
			Message:   err.Error(),
			Details:   gin.H{"hint": ai.MissingKeyHint},
		}
	case errors.Is(err, models.ErrStorageFailure):
		return http.StatusInternalServerError, ErrorResponse{
			ErrorCode: "storage_failure",
			Message:   err.Error(),
		}
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			ErrorCode: "storage_unavailable",
			Message:   err.Error(),
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			ErrorCode: "timeout",
			Message:   "The operation did not finish in time",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			ErrorCode: "internal_error",
			Message:   "Unexpected error",
			Details:   err.Error(),
		}
	}
}

// RespondWithImportError writes the response chosen by ClassifyImportError.
func RespondWithImportError(c *gin.Context, err error) {
	status, body := ClassifyImportError(err)
	c.JSON(status, body)
}
