package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// ListTemplatesResponse wraps a page of style templates.
type ListTemplatesResponse struct {
	Templates  []domain.StyleTemplate `json:"templates"`
	Pagination Pagination             `json:"pagination"`
}

// CreateTemplate godoc
// @ID          createTemplate
// @Summary     Create a style template
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Param       body  body      services.TemplateInput  true  "Template fields"
// @Success     201   {object}  handlers.Envelope{data=domain.StyleTemplate}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Router      /templates [post]
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var in services.TemplateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.templates.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// GetTemplate godoc
// @ID          getTemplate
// @Summary     Get a style template
// @Tags        Templates
// @Produce     json
// @Param       id   path      string  true  "Template ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.StyleTemplate}
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [get]
func (h *Handlers) GetTemplate(c *gin.Context) {
	t, err := h.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List style templates (paginated)
// @Tags        Templates
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       styleType      query   string  false  "friendly|professional|passionate|storytelling|humorous|custom"
// @Param       active         query   bool    false  "Filter by active flag"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.Envelope{data=handlers.ListTemplatesResponse}
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()
	active, valid := optionalBool(c, "active")
	if !valid {
		return
	}
	f := repo.TemplateFilter{
		StyleType: strings.ToLower(strings.TrimSpace(c.Query("styleType"))),
		Active:    active,
	}
	if f.StyleType != "" && !domain.ValidStyleType(f.StyleType) {
		writeError(c, services.ErrInvalidStyleType)
		return
	}
	page, pageSize := clampPagination(c)

	if notModified(c, "templates", page, pageSize, func() (int64, string, error) { return h.templates.Stats(ctx, f) }) {
		return
	}

	items, total, err := h.templates.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListTemplatesResponse{Templates: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateTemplate godoc
// @ID          updateTemplate
// @Summary     Update a style template
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Param       id    path      string                  true  "Template ID"  format(uuid)
// @Param       body  body      services.TemplateInput  true  "Fields to change"
// @Success     200   {object}  handlers.Envelope{data=domain.StyleTemplate}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [put]
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	var in services.TemplateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.templates.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTemplate godoc
// @ID          deleteTemplate
// @Summary     Delete a style template
// @Tags        Templates
// @Produce     json
// @Param       id   path      string  true  "Template ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [delete]
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	id := c.Param("id")
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}
