package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
)

// ProductInput carries product fields for create and partial update. Nil
// fields are left untouched on update.
type ProductInput struct {
	Name            *string   `json:"name"`
	Category        *string   `json:"category"`
	Origin          *string   `json:"origin"`
	Price           *float64  `json:"price"`
	Specification   *string   `json:"specification"`
	SellingPoints   *[]string `json:"sellingPoints"`
	Certificates    *[]string `json:"certificates"`
	ProhibitedWords *[]string `json:"prohibitedWords"`
	Description     *string   `json:"description"`
	IsActive        *bool     `json:"isActive"`
}

// ProductService manages the product catalogue.
type ProductService struct {
	DB *gorm.DB
}

// Create validates in and stores a new product. Products are active unless
// isActive is explicitly false.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Create")
	defer span.End()

	p := &domain.Product{IsActive: true}
	in.apply(p)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := repo.CreateProduct(ctx, s.DB, p); err != nil {
		return nil, mapRepoErr(err, ErrProductNotFound)
	}
	return p, nil
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := repo.GetProduct(ctx, s.DB, id)
	return p, mapRepoErr(err, ErrProductNotFound)
}

// ListPage returns a page of products and the total matching f.
func (s *ProductService) ListPage(ctx context.Context, f repo.ProductFilter, page, pageSize int) ([]domain.Product, int64, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := pageBounds(page, pageSize)
	total, err := repo.CountProducts(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}
	items, err := repo.ListProductsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Update applies the non-nil fields of in to product id.
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer span.End()

	p, err := repo.GetProduct(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrProductNotFound)
	}
	in.apply(p)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := repo.UpdateProduct(ctx, s.DB, p); err != nil {
		return nil, mapRepoErr(err, ErrProductNotFound)
	}
	return p, nil
}

// Delete removes product id.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteProduct(ctx, s.DB, id), ErrProductNotFound)
}

// Stats backs list ETags.
func (s *ProductService) Stats(ctx context.Context, f repo.ProductFilter) (int64, string, error) {
	return statsTag(repo.ProductsStats(ctx, s.DB, f))
}

func (in ProductInput) apply(p *domain.Product) {
	if in.Name != nil {
		p.Name = clip(normalizeText(*in.Name), nameMaxLen)
	}
	if in.Category != nil {
		p.Category = normalizeText(*in.Category)
	}
	if in.Origin != nil {
		p.Origin = normalizeText(*in.Origin)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Specification != nil {
		p.Specification = normalizeText(*in.Specification)
	}
	if in.SellingPoints != nil {
		p.SellingPoints = cleanList(*in.SellingPoints)
	}
	if in.Certificates != nil {
		p.Certificates = cleanList(*in.Certificates)
	}
	if in.ProhibitedWords != nil {
		p.ProhibitedWords = cleanList(*in.ProhibitedWords)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.SellingPoints == nil {
		p.SellingPoints = []string{}
	}
	if p.Certificates == nil {
		p.Certificates = []string{}
	}
	if p.ProhibitedWords == nil {
		p.ProhibitedWords = []string{}
	}
}

func validateProduct(p *domain.Product) error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
