package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/http/middleware"
	"github.com/agristream/livescript/internal/services"
)

// GenerateScript godoc
// @ID          generateScript
// @Summary     Generate a script (event stream)
// @Description Validates the request, then streams Server-Sent Events. Each frame is `data: <json>` followed by a blank line: chunk events carry model text as it arrives, and the stream ends with one done event (scriptId plus the stored script) or one error event. Validation errors are returned as a normal JSON error before any event is written.
// @Tags        Scripts
// @Accept      json
// @Produce     text/event-stream
// @Param       body  body      services.GenerateRequest  true  "Generation parameters"
// @Success     200   {object}  services.Event  "One frame of the event stream"
// @Failure     400   {object}  handlers.ErrorResponse  "Missing ids or invalid promotion rules"
// @Failure     404   {object}  handlers.ErrorResponse  "Product or template not found"
// @Failure     503   {object}  handlers.ErrorResponse  "Generator not configured"
// @Router      /scripts/generate [post]
func (h *Handlers) GenerateScript(c *gin.Context) {
	var req services.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	gen, err := h.generator.Prepare(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	if err := gen.Run(ctx, sseEmitter(c)); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("generation stream ended without done event")
	}
}

// sseEmitter writes one event per frame and flushes it. It fails once the
// client has gone away so the producer stops pulling upstream text.
func sseEmitter(c *gin.Context) func(services.Event) error {
	ctx := c.Request.Context()
	return func(ev services.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		frame := make([]byte, 0, len(payload)+8)
		frame = append(frame, "data: "...)
		frame = append(frame, payload...)
		frame = append(frame, '\n', '\n')
		if _, err := c.Writer.Write(frame); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}
}
