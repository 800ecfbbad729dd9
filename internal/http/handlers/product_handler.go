package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
)

// ListProductsResponse wraps a page of products.
type ListProductsResponse struct {
	Products   []domain.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

// CreateProduct godoc
// @ID          createProduct
// @Summary     Create a product
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       body  body      services.ProductInput  true  "Product fields"
// @Success     201   {object}  handlers.Envelope{data=domain.Product}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products [post]
func (h *Handlers) CreateProduct(c *gin.Context) {
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Products
// @Produce     json
// @Param       id   path      string  true  "Product ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=domain.Product}
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List products (paginated)
// @Description Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Products
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       category       query   string  false  "Exact category"
// @Param       active         query   bool    false  "Only active (true) or inactive (false) products"
// @Param       q              query   string  false  "Substring of the product name"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.Envelope{data=handlers.ListProductsResponse}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	active, valid := optionalBool(c, "active")
	if !valid {
		return
	}
	f := repo.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Active:   active,
		Query:    strings.TrimSpace(c.Query("q")),
	}
	page, pageSize := clampPagination(c)

	if notModified(c, "products", page, pageSize, func() (int64, string, error) { return h.products.Stats(ctx, f) }) {
		return
	}

	items, total, err := h.products.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListProductsResponse{Products: items, Pagination: newPagination(page, pageSize, total)})
}

// UpdateProduct godoc
// @ID          updateProduct
// @Summary     Update a product
// @Description Partial update: omitted fields are left unchanged.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       id    path      string                 true  "Product ID"  format(uuid)
// @Param       body  body      services.ProductInput  true  "Fields to change"
// @Success     200   {object}  handlers.Envelope{data=domain.Product}
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404   {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id} [put]
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var in services.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeleteProduct godoc
// @ID          deleteProduct
// @Summary     Delete a product
// @Tags        Products
// @Produce     json
// @Param       id   path      string  true  "Product ID"  format(uuid)
// @Success     200  {object}  handlers.Envelope{data=handlers.DeletedResponse}
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id} [delete]
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	deleted(c, id)
}
