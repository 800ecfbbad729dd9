package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// ScriptFilter narrows script listings.
type ScriptFilter struct {
	ProductID string
	Status    string
}

func (f ScriptFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ProductID != "" {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CreateScript inserts s, assigning a UUID when s.ID is empty.
func CreateScript(ctx context.Context, db *gorm.DB, s *domain.Script) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	t := utcNow()
	s.CreatedAt, s.UpdatedAt = t, t
	return mapCreateErr(db.WithContext(ctx).Create(s).Error)
}

// GetScript fetches a script by id, or ErrNotFound.
func GetScript(ctx context.Context, db *gorm.DB, id string) (*domain.Script, error) {
	var s domain.Script
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountScripts returns the number of scripts matching f.
func CountScripts(ctx context.Context, db *gorm.DB, f ScriptFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Script{})).Count(&total).Error
	return total, err
}

// ListScriptsPage returns a page of scripts matching f, newest first.
func ListScriptsPage(ctx context.Context, db *gorm.DB, f ScriptFilter, offset, limit int) ([]domain.Script, error) {
	var out []domain.Script
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateScript overwrites all mutable columns of s.
func UpdateScript(ctx context.Context, db *gorm.DB, s *domain.Script) error {
	s.UpdatedAt = utcNow()
	return updateRow(ctx, db, s)
}

// SaveCompliance stores an audit result on the script. Only the compliance
// columns and the quality score are written.
func SaveCompliance(ctx context.Context, db *gorm.DB, id string, r *domain.ComplianceReport, checkedAt time.Time) error {
	q := r.QualityScore()
	patch := &domain.Script{
		ID:                  id,
		ComplianceStatus:    r.Status,
		ComplianceIssues:    r.Issues,
		ComplianceSummary:   r.Summary,
		ComplianceCheckedAt: &checkedAt,
		QualityScore:        &q,
		UpdatedAt:           utcNow(),
	}
	res := db.WithContext(ctx).
		Model(patch).
		Select("compliance_status", "compliance_issues", "compliance_summary", "compliance_checked_at", "quality_score", "updated_at").
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteScript hard-deletes a script.
func DeleteScript(ctx context.Context, db *gorm.DB, id string) error {
	return deleteRow(ctx, db, &domain.Script{}, id)
}
