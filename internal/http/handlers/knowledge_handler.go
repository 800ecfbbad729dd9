package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/services"
)

// ImportURLRequest asks the server to fetch a page into a collection.
type ImportURLRequest struct {
	URL   string `json:"url" example:"https://example.com/navel-orange-guide"`
	Title string `json:"title"`
}

// CreateCollection godoc
// @ID          createCollection
// @Summary     Create a knowledge collection
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       body  body      services.CollectionInput  true  "Collection"
// @Success     201   {object}  handlers.Envelope{data=domain.KnowledgeCollection}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse  "Name already taken"
// @Router      /knowledge/collections [post]
func (h *Handlers) CreateCollection(c *gin.Context) {
	var in services.CollectionInput
	if !bindJSON(c, &in) {
		return
	}
	col, err := h.knowledge.CreateCollection(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, col)
}

// ListCollections godoc
// @ID          listCollections
// @Summary     List knowledge collections
// @Tags        Knowledge
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=[]domain.KnowledgeCollection}
// @Router      /knowledge/collections [get]
func (h *Handlers) ListCollections(c *gin.Context) {
	cols, err := h.knowledge.ListCollections(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, cols)
}

// GetCollection godoc
// @ID          getCollection
// @Summary     Get a knowledge collection
// @Tags        Knowledge
// @Produce     json
// @Param       id   path      string  true  "Collection ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.KnowledgeCollection}
// @Failure     404  {object}  handlers.ErrorResponse  "Collection not found"
// @Router      /knowledge/collections/{id} [get]
func (h *Handlers) GetCollection(c *gin.Context) {
	col, err := h.knowledge.GetCollection(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, col)
}

// DeleteCollection godoc
// @ID          deleteCollection
// @Summary     Delete a collection and its documents
// @Tags        Knowledge
// @Produce     json
// @Param       id   path      string  true  "Collection ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Collection not found"
// @Router      /knowledge/collections/{id} [delete]
func (h *Handlers) DeleteCollection(c *gin.Context) {
	id := c.Param("id")
	if err := h.knowledge.DeleteCollection(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}

// AddDocument godoc
// @ID          addDocument
// @Summary     Add a document to a collection
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       id    path      string                  true  "Collection ID"  format(uuid)
// @Param       body  body      services.DocumentInput  true  "Document"
// @Success     201   {object}  handlers.Envelope{data=domain.KnowledgeDocument}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Collection not found"
// @Router      /knowledge/collections/{id}/documents [post]
func (h *Handlers) AddDocument(c *gin.Context) {
	var in services.DocumentInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.knowledge.AddDocument(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// ImportDocument godoc
// @ID          importDocument
// @Summary     Import a web page into a collection
// @Description Fetches the URL and stores its readable text.
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       id    path      string                     true  "Collection ID"  format(uuid)
// @Param       body  body      handlers.ImportURLRequest  true  "Page to import"
// @Success     201   {object}  handlers.Envelope{data=domain.KnowledgeDocument}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Collection not found"
// @Failure     502   {object}  handlers.ErrorResponse  "Fetch failed"
// @Router      /knowledge/collections/{id}/import [post]
func (h *Handlers) ImportDocument(c *gin.Context) {
	var req ImportURLRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.knowledge.ImportURL(c.Request.Context(), c.Param("id"), req.URL, req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List the documents of a collection
// @Tags        Knowledge
// @Produce     json
// @Param       id   path      string  true  "Collection ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=[]domain.KnowledgeDocument}
// @Failure     404  {object}  handlers.ErrorResponse  "Collection not found"
// @Router      /knowledge/collections/{id}/documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.knowledge.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Tags        Knowledge
// @Produce     json
// @Param       id   path      string  true  "Document ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /knowledge/documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.knowledge.DeleteDocument(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}

// SearchKnowledge godoc
// @ID          searchKnowledge
// @Summary     Search reference fragments
// @Tags        Knowledge
// @Accept      json
// @Produce     json
// @Param       body  body      services.SearchInput  true  "Query"
// @Success     200   {object}  handlers.Envelope{data=[]domain.ReferenceFragment}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502   {object}  handlers.ErrorResponse  "Search service failed"
// @Router      /knowledge/search [post]
func (h *Handlers) SearchKnowledge(c *gin.Context) {
	var in services.SearchInput
	if !bindJSON(c, &in) {
		return
	}
	frags, err := h.knowledge.Search(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	if frags == nil {
		frags = []domain.ReferenceFragment{}
	}
	ok(c, http.StatusOK, frags)
}
