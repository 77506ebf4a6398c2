package middleware

import (
	"net/http"

	"chefshelf/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects uploads whose declared size exceeds maxSize and caps
// the body reader for the rest.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size",
				gin.H{
					"max_size_mb": maxSize / (1024 * 1024),
					"received":    c.Request.ContentLength,
				})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
