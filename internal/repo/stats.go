// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for conditional responses
// (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// tableStats returns the row count of q and the greatest updated_at, or
// (0, nil) when q matches nothing.
func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ProductsStats returns the count and latest updated_at of products matching f.
func ProductsStats(ctx context.Context, db *gorm.DB, f ProductFilter) (int64, *time.Time, error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.Product{})))
}

// TemplatesStats returns the count and latest updated_at of templates matching f.
func TemplatesStats(ctx context.Context, db *gorm.DB, f TemplateFilter) (int64, *time.Time, error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.StyleTemplate{})))
}

// ScriptsStats returns the count and latest updated_at of scripts matching f.
func ScriptsStats(ctx context.Context, db *gorm.DB, f ScriptFilter) (int64, *time.Time, error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.Script{})))
}

// MaterialsStats returns the count and latest updated_at of materials matching f.
func MaterialsStats(ctx context.Context, db *gorm.DB, f MaterialFilter) (int64, *time.Time, error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.Material{})))
}
