package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// Health godoc
// @ID          health
// @Summary     Liveness and database reachability
// @Tags        Ops
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=handlers.HealthResponse}
// @Failure     503  {object}  handlers.ErrorResponse  "Database unreachable"
// @Router      /health [get]
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			fail(c, http.StatusServiceUnavailable, "unhealthy", "database not configured")
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = c.Error(err)
			fail(c, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
			return
		}
		ok(c, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
	}
}
