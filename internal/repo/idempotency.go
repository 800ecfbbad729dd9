package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
)

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, resourceID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(resourceID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ? AND key = ? AND expires_at > ?", userID, resourceID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record holding the completed response and
// returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, resourceID, key string, status int, response []byte, ttl time.Duration) (*domain.Idempotency, error) {
	now := utcNow()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		ResourceID: resourceID,
		Key:        key,
		Status:     status,
		Response:   response,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, mapCreateErr(err)
	}
	return rec, nil
}
