package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/http/middleware"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// ListScriptsResponse wraps a page of scripts.
type ListScriptsResponse struct {
	Scripts    []domain.ScriptView `json:"scripts"`
	Pagination Pagination          `json:"pagination"`
}

// GetScript godoc
// @ID          getScript
// @Summary     Get a script
// @Description Returns the five sections plus the legacy flat fields.
// @Tags        Scripts
// @Produce     json
// @Param       id   path      string  true  "Script ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.ScriptView}
// @Failure     404  {object}  handlers.ErrorResponse  "Script not found"
// @Router      /scripts/{id} [get]
func (h *Handlers) GetScript(c *gin.Context) {
	v, err := h.scripts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// ListScripts godoc
// @ID          listScripts
// @Summary     List scripts (paginated)
// @Tags        Scripts
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       productId      query   string  false  "Scripts of one product"
// @Param       status         query   string  false  "draft|reviewed|published|archived"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.Envelope{data=handlers.ListScriptsResponse}
// @Success     304  {string}  string  "Not Modified"
// @Router      /scripts [get]
func (h *Handlers) ListScripts(c *gin.Context) {
	ctx := c.Request.Context()
	f := repo.ScriptFilter{
		ProductID: strings.TrimSpace(c.Query("productId")),
		Status:    strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}
	page, pageSize := clampPagination(c)

	if notModified(c, "scripts", page, pageSize, func() (int64, string, error) { return h.scripts.Stats(ctx, f) }) {
		return
	}

	items, total, err := h.scripts.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListScriptsResponse{Scripts: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateScript godoc
// @ID          updateScript
// @Summary     Edit a script
// @Description Updates title, status, quality score, audience or section texts. Sections accept both section keys (warmUp…atmosphere) and legacy names (opening…closing).
// @Tags        Scripts
// @Accept      json
// @Produce     json
// @Param       id    path      string                true  "Script ID"  format(uuid)
// @Param       body  body      services.ScriptPatch  true  "Fields to change"
// @Success     200   {object}  handlers.Envelope{data=domain.ScriptView}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Script not found"
// @Router      /scripts/{id} [put]
func (h *Handlers) UpdateScript(c *gin.Context) {
	var p services.ScriptPatch
	if !bindJSON(c, &p) {
		return
	}
	v, err := h.scripts.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeleteScript godoc
// @ID          deleteScript
// @Summary     Delete a script
// @Tags        Scripts
// @Produce     json
// @Param       id   path      string  true  "Script ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Script not found"
// @Router      /scripts/{id} [delete]
func (h *Handlers) DeleteScript(c *gin.Context) {
	id := c.Param("id")
	if err := h.scripts.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}

// ExportScript godoc
// @ID          exportScript
// @Summary     Export a script
// @Description Renders the script as Markdown or as a standalone HTML page.
// @Tags        Scripts
// @Produce     text/markdown
// @Produce     text/html
// @Param       id      path   string  true   "Script ID"  format(uuid)
// @Param       format  query  string  false  "markdown|html"  default(markdown)
// @Success     200  {string}  string  "Rendered document"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Script not found"
// @Router      /scripts/{id}/export [get]
func (h *Handlers) ExportScript(c *gin.Context) {
	id := c.Param("id")
	body, contentType, err := h.scripts.Export(c.Request.Context(), id, c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	ext := "md"
	if strings.HasPrefix(contentType, "text/html") {
		ext = "html"
	}
	c.Header("Content-Disposition", `attachment; filename="script-`+id+`.`+ext+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// CheckCompliance godoc
// @ID          checkCompliance
// @Summary     Audit a script for compliance
// @Description Runs the advertising-law audit and stores the report on the script. With an Idempotency-Key the stored report of a completed call is replayed and marked with Idempotency-Replayed: true.
// @Tags        Scripts
// @Produce     json
// @Param       X-User-ID        header  string  false  "Caller identity"
// @Param       Idempotency-Key  header  string  false  "Replay protection key"
// @Param       id               path    string  true   "Script ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.ComplianceReport}
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous call"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Script not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream failure"
// @Failure     503  {object}  handlers.ErrorResponse  "Generator not configured"
// @Router      /scripts/{id}/compliance [post]
func (h *Handlers) CheckCompliance(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	uid := middleware.UserIDFrom(c)
	key, hasKey := middleware.GetIdempotencyKey(c)

	if hasKey {
		if rep, found := h.compliance.Replay(ctx, uid, id, key); found {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, rep)
			return
		}
	}

	rep, err := h.compliance.Check(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if hasKey {
		h.compliance.Remember(ctx, uid, id, key, http.StatusOK, rep)
	}
	ok(c, http.StatusOK, rep)
}
