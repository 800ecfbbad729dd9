package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// TemplateFilter narrows style template listings.
type TemplateFilter struct {
	StyleType string
	Active    *bool
	Name      string
}

func (f TemplateFilter) apply(q *gorm.DB) *gorm.DB {
	if f.StyleType != "" {
		q = q.Where("style_type = ?", f.StyleType)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	return q
}

// CreateTemplate inserts t, assigning a UUID when t.ID is empty.
func CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.StyleTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	ts := utcNow()
	t.CreatedAt, t.UpdatedAt = ts, ts
	return mapCreateErr(db.WithContext(ctx).Create(t).Error)
}

// GetTemplate fetches a style template by id, or ErrNotFound.
func GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.StyleTemplate, error) {
	var t domain.StyleTemplate
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTemplates returns the number of templates matching f.
func CountTemplates(ctx context.Context, db *gorm.DB, f TemplateFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.StyleTemplate{})).Count(&total).Error
	return total, err
}

// ListTemplatesPage returns a page of templates matching f, newest first.
func ListTemplatesPage(ctx context.Context, db *gorm.DB, f TemplateFilter, offset, limit int) ([]domain.StyleTemplate, error) {
	var out []domain.StyleTemplate
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateTemplate overwrites all mutable columns of t.
func UpdateTemplate(ctx context.Context, db *gorm.DB, t *domain.StyleTemplate) error {
	t.UpdatedAt = utcNow()
	return updateRow(ctx, db, t)
}

// DeleteTemplate removes a style template.
func DeleteTemplate(ctx context.Context, db *gorm.DB, id string) error {
	return deleteRow(ctx, db, &domain.StyleTemplate{}, id)
}
