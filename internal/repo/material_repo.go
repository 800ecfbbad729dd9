package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// MaterialFilter narrows material listings.
type MaterialFilter struct {
	Keyword string
	Status  string
}

func (f MaterialFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Keyword != "" {
		q = q.Where("keyword = ?", f.Keyword)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CreateMaterial inserts m. A video already stored for the same platform
// yields ErrDuplicate.
func CreateMaterial(ctx context.Context, db *gorm.DB, m *domain.Material) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MaterialCollected
	}
	t := utcNow()
	m.CreatedAt, m.UpdatedAt = t, t
	return mapCreateErr(db.WithContext(ctx).Create(m).Error)
}

// GetMaterial fetches a material by id, or ErrNotFound.
func GetMaterial(ctx context.Context, db *gorm.DB, id string) (*domain.Material, error) {
	var m domain.Material
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMaterials returns the number of materials matching f.
func CountMaterials(ctx context.Context, db *gorm.DB, f MaterialFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Material{})).Count(&total).Error
	return total, err
}

// ListMaterialsPage returns a page of materials matching f, newest first.
func ListMaterialsPage(ctx context.Context, db *gorm.DB, f MaterialFilter, offset, limit int) ([]domain.Material, error) {
	var out []domain.Material
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SetTranscript stores the transcript and marks the material transcribed.
func SetTranscript(ctx context.Context, db *gorm.DB, id, transcript string) error {
	res := db.WithContext(ctx).
		Model(&domain.Material{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"transcript": transcript,
			"status":     domain.MaterialTranscribed,
			"updated_at": utcNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteMaterial hard-deletes a material.
func DeleteMaterial(ctx context.Context, db *gorm.DB, id string) error {
	return deleteRow(ctx, db, &domain.Material{}, id)
}
