package middleware

import "github.com/gin-gonic/gin"

// ErrorBody is the failure envelope written by every endpoint and by the
// middleware in this package.
type ErrorBody struct {
	Success bool `json:"success" example:"false"`
	// Human-readable message (safe to show to users)
	Error string `json:"error" example:"product not found"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// AbortError stops the chain and writes an ErrorBody with status.
func AbortError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Success:   false,
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFrom(c),
	})
}

// RequestIDFrom returns the correlation id of the request, or "".
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s := asString(v); s != "" {
			return s
		}
	}
	return c.Writer.Header().Get(requestIDHeader)
}
