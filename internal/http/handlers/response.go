// Package handlers provides the HTTP handlers of the public API.
//
// Every response uses one of two envelopes:
//
//	HTTP/1.1 200 OK
//	{ "success": true, "data": { ... } }
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "error": "product not found",
//	  "code": "not_found",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
//
// The only exceptions are the generation event stream and script exports,
// which write their own content types.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/http/middleware"
)

// ErrorResponse is the failure envelope returned by all endpoints.
type ErrorResponse = middleware.ErrorBody

// Envelope is the success envelope. Data holds the resource or page.
type Envelope struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data"`
}

// DeletedResponse is returned by delete endpoints.
type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted" example:"true"`
}

// fail aborts the request with the failure envelope. 5xx are logged with
// the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	middleware.AbortError(c, status, code, msg)
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes data inside the success envelope.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func deleted(c *gin.Context, id string) {
	ok(c, http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}
