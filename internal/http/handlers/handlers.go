package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/services"
	"github.com/agristream/livescript/internal/utils"
)

//
// Service contracts (context-aware)
//

// ProductService manages the product catalogue.
type ProductService interface {
	Create(ctx context.Context, in services.ProductInput) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	ListPage(ctx context.Context, f repo.ProductFilter, page, pageSize int) ([]domain.Product, int64, error)
	Update(ctx context.Context, id string, in services.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// Stats returns the row count and a version tag for list ETags.
	Stats(ctx context.Context, f repo.ProductFilter) (int64, string, error)
}

// TemplateService manages style templates.
type TemplateService interface {
	Create(ctx context.Context, in services.TemplateInput) (*domain.StyleTemplate, error)
	Get(ctx context.Context, id string) (*domain.StyleTemplate, error)
	ListPage(ctx context.Context, f repo.TemplateFilter, page, pageSize int) ([]domain.StyleTemplate, int64, error)
	Update(ctx context.Context, id string, in services.TemplateInput) (*domain.StyleTemplate, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, f repo.TemplateFilter) (int64, string, error)
}

// ScriptService reads, edits and exports generated scripts.
type ScriptService interface {
	Get(ctx context.Context, id string) (*domain.ScriptView, error)
	ListPage(ctx context.Context, f repo.ScriptFilter, page, pageSize int) ([]domain.ScriptView, int64, error)
	Update(ctx context.Context, id string, p services.ScriptPatch) (*domain.ScriptView, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, f repo.ScriptFilter) (int64, string, error)
	// Export returns the rendered document and its content type.
	Export(ctx context.Context, id, format string) ([]byte, string, error)
}

// GenerationService validates a generation request and returns a prepared
// run. Validation errors surface before any stream is opened.
type GenerationService interface {
	Prepare(ctx context.Context, req services.GenerateRequest) (*services.Generation, error)
}

// ComplianceService audits scripts and remembers idempotent calls.
type ComplianceService interface {
	Check(ctx context.Context, scriptID string) (*domain.ComplianceReport, error)
	Replay(ctx context.Context, userID, scriptID, key string) (*domain.ComplianceReport, bool)
	Remember(ctx context.Context, userID, scriptID, key string, status int, report *domain.ComplianceReport)
}

// KnowledgeService manages reference collections and answers searches.
type KnowledgeService interface {
	CreateCollection(ctx context.Context, in services.CollectionInput) (*domain.KnowledgeCollection, error)
	ListCollections(ctx context.Context) ([]domain.KnowledgeCollection, error)
	GetCollection(ctx context.Context, id string) (*domain.KnowledgeCollection, error)
	DeleteCollection(ctx context.Context, id string) error
	AddDocument(ctx context.Context, collectionID string, in services.DocumentInput) (*domain.KnowledgeDocument, error)
	ImportURL(ctx context.Context, collectionID, rawURL, title string) (*domain.KnowledgeDocument, error)
	ListDocuments(ctx context.Context, collectionID string) ([]domain.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	Search(ctx context.Context, in services.SearchInput) ([]domain.ReferenceFragment, error)
}

// MaterialService searches, collects and transcribes reference videos.
type MaterialService interface {
	Search(ctx context.Context, keyword string, page, pageSize int) (materials.Page, error)
	Collect(ctx context.Context, in services.CollectInput) (*domain.Material, error)
	ListPage(ctx context.Context, f repo.MaterialFilter, page, pageSize int) ([]domain.Material, int64, error)
	Get(ctx context.Context, id string) (*domain.Material, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, f repo.MaterialFilter) (int64, string, error)
	Transcribe(ctx context.Context, id string) (*domain.Material, error)
}

//
// Handler wiring
//

// Services bundles the collaborators of Handlers. Any of them may be nil
// in tests that do not exercise the matching routes.
type Services struct {
	Products   ProductService
	Templates  TemplateService
	Scripts    ScriptService
	Generator  GenerationService
	Compliance ComplianceService
	Knowledge  KnowledgeService
	Materials  MaterialService
}

// Handlers groups the HTTP endpoints. It depends only on the service
// contracts above.
type Handlers struct {
	products   ProductService
	templates  TemplateService
	scripts    ScriptService
	generator  GenerationService
	compliance ComplianceService
	knowledge  KnowledgeService
	materials  MaterialService
}

// New constructs Handlers bound to s.
func New(s Services) *Handlers {
	return &Handlers{
		products:   s.Products,
		templates:  s.Templates,
		scripts:    s.Scripts,
		generator:  s.Generator,
		compliance: s.Compliance,
		knowledge:  s.Knowledge,
		materials:  s.Materials,
	}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// notModified sets a weak ETag for a list page and reports whether the
// client's If-None-Match already matches it, in which case a 304 has been
// written. Stats failures only disable the ETag.
func notModified(c *gin.Context, kind string, page, pageSize int, stats func() (int64, string, error)) bool {
	_, tag, err := stats()
	if err != nil {
		return false
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, tag, page, pageSize)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// optionalBool reads a tri-state boolean query param. On a malformed value
// it writes a 400 and returns false.
func optionalBool(c *gin.Context, name string) (*bool, bool) {
	v, err := utils.ParseOptionalBool(c.Query(name))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a boolean")
		return nil, false
	}
	return v, true
}

// bindJSON decodes the request body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}
