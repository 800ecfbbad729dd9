package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// ListMaterialsResponse wraps a page of collected materials.
type ListMaterialsResponse struct {
	Materials  []domain.Material `json:"materials"`
	Pagination Pagination        `json:"pagination"`
}

// SearchMaterials godoc
// @ID          searchMaterials
// @Summary     Search platform videos
// @Tags        Materials
// @Produce     json
// @Param       keyword    query  string  true   "Search keyword"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.Envelope{data=materials.Page}
// @Failure     400  {object}  handlers.ErrorResponse  "Keyword required"
// @Failure     502  {object}  handlers.ErrorResponse  "Search provider failed"
// @Router      /materials/search [get]
func (h *Handlers) SearchMaterials(c *gin.Context) {
	page, pageSize := clampPagination(c)
	res, err := h.materials.Search(c.Request.Context(), strings.TrimSpace(c.Query("keyword")), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// CollectMaterial godoc
// @ID          collectMaterial
// @Summary     Collect a search result
// @Tags        Materials
// @Accept      json
// @Produce     json
// @Param       body  body      services.CollectInput  true  "Video to store"
// @Success     201   {object}  handlers.Envelope{data=domain.Material}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse  "Already collected"
// @Router      /materials [post]
func (h *Handlers) CollectMaterial(c *gin.Context) {
	var in services.CollectInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.materials.Collect(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListMaterials godoc
// @ID          listMaterials
// @Summary     List collected materials (paginated)
// @Tags        Materials
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       keyword        query   string  false  "Keyword the video was collected under"
// @Param       status         query   string  false  "collected|transcribed"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.Envelope{data=handlers.ListMaterialsResponse}
// @Success     304  {string}  string  "Not Modified"
// @Router      /materials [get]
func (h *Handlers) ListMaterials(c *gin.Context) {
	ctx := c.Request.Context()
	f := repo.MaterialFilter{
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Status:  strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}
	page, pageSize := clampPagination(c)

	if notModified(c, "materials", page, pageSize, func() (int64, string, error) { return h.materials.Stats(ctx, f) }) {
		return
	}

	items, total, err := h.materials.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListMaterialsResponse{Materials: items, Pagination: newPagination(page, pageSize, total)})
}

// GetMaterial godoc
// @ID          getMaterial
// @Summary     Get a collected material
// @Tags        Materials
// @Produce     json
// @Param       id   path      string  true  "Material ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.Material}
// @Failure     404  {object}  handlers.ErrorResponse  "Material not found"
// @Router      /materials/{id} [get]
func (h *Handlers) GetMaterial(c *gin.Context) {
	m, err := h.materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMaterial godoc
// @ID          deleteMaterial
// @Summary     Delete a collected material
// @Tags        Materials
// @Produce     json
// @Param       id   path      string  true  "Material ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Material not found"
// @Router      /materials/{id} [delete]
func (h *Handlers) DeleteMaterial(c *gin.Context) {
	id := c.Param("id")
	if err := h.materials.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}

// TranscribeMaterial godoc
// @ID          transcribeMaterial
// @Summary     Transcribe a collected video
// @Tags        Materials
// @Produce     json
// @Param       id   path      string  true  "Material ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.Material}
// @Failure     400  {object}  handlers.ErrorResponse  "Material has no URL"
// @Failure     404  {object}  handlers.ErrorResponse  "Material not found"
// @Failure     502  {object}  handlers.ErrorResponse  "ASR failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Transcriber not configured"
// @Router      /materials/{id}/transcribe [post]
func (h *Handlers) TranscribeMaterial(c *gin.Context) {
	m, err := h.materials.Transcribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}
