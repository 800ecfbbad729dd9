// Package middleware contains the Gin middleware shared by the HTTP layer:
// correlation ids, caller identity, redacting access logs, panic recovery,
// Prometheus instrumentation, idempotency keys, rate limiting and security
// headers.
//
// Recommended order: RequestID, UserID, RedactingLogger, Recovery. That way
// panics and access logs carry both the request id and the caller.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// userIDKey is the Gin context key holding the caller identity.
	userIDKey = "userID"
	// UserIDHeader carries the opaque caller identity. It is not
	// authenticated; it only scopes idempotency keys, rate limits and logs.
	UserIDHeader = "X-User-ID"
	// AnonymousUser is used when no identity header is sent.
	AnonymousUser = "anonymous"
	// loggerKey holds the request-scoped zerolog.Logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// maxUserIDLength caps accepted identity header values.
	maxUserIDLength = 128
)

// RequestID reuses an incoming X-Request-ID or generates a UUIDv4, echoes it
// on the response and stores it in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// UserID stores the caller identity from X-User-ID under "userID". An
// identity already set by earlier middleware wins.
func UserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get(userIDKey); ok && asString(v) != "" {
			c.Next()
			return
		}
		uid := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if uid == "" || len(uid) > maxUserIDLength {
			uid = AnonymousUser
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserIDFrom returns the caller identity, defaulting to AnonymousUser.
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s := asString(v); s != "" {
			return s
		}
	}
	if c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader(UserIDHeader)); h != "" && len(h) <= maxUserIDLength {
			return h
		}
	}
	return AnonymousUser
}

// Recovery turns panics into a JSON 500 with the standard envelope. If the
// handler already started writing (an event stream, say) the connection is
// only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					AbortError(c, http.StatusInternalServerError, "internal_error", "internal server error")
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// RedactingLogger did not run. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString converts an arbitrary interface to a string, returning an empty
// string when the value is not a string. Used for context values.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes and appends an ellipsis. A max <= 0
// disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
