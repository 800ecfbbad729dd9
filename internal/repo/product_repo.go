package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// ProductFilter narrows product listings. Zero values mean "no filter".
type ProductFilter struct {
	Category string
	Active   *bool
	// Query matches a substring of the product name.
	Query string
	// Name matches the product name exactly.
	Name string
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.Query != "" {
		q = q.Where(`name LIKE ? ESCAPE '\'`, "%"+escapeLike(f.Query)+"%")
	}
	return q
}

// CreateProduct inserts p, assigning a UUID when p.ID is empty.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	t := utcNow()
	p.CreatedAt, p.UpdatedAt = t, t
	return mapCreateErr(db.WithContext(ctx).Create(p).Error)
}

// GetProduct fetches a product by id, or ErrNotFound.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountProducts returns the number of products matching f.
func CountProducts(ctx context.Context, db *gorm.DB, f ProductFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Product{})).Count(&total).Error
	return total, err
}

// ListProductsPage returns a page of products matching f, newest first.
func ListProductsPage(ctx context.Context, db *gorm.DB, f ProductFilter, offset, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateProduct overwrites all mutable columns of p.
func UpdateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	p.UpdatedAt = utcNow()
	return updateRow(ctx, db, p)
}

// DeleteProduct removes a product. Scripts referencing it are kept.
func DeleteProduct(ctx context.Context, db *gorm.DB, id string) error {
	return deleteRow(ctx, db, &domain.Product{}, id)
}
