// Package handlers provides the HTTP handler implementations of the public
// API: webhook ingestion, commit-history queries, and the commit viewer.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate the outcome into HTTP responses. All error
// responses carry an ErrorResponse envelope with a stable machine-readable
// code.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhnb/postsai/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Example:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "forbidden",
//	  "message": "missing write permission for repository: secret"
//	}
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"forbidden"`
	// Human-readable message
	Message string `json:"message" example:"missing write permission for repository"`
}

// fail aborts the request with a structured error. Server errors (>= 500)
// are additionally logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
