package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency records that a request carrying a given Idempotency-Key has
// already completed for (user_id, resource_id, key). A replayed request is
// answered from Response, the body recorded when the request completed.
type Idempotency struct {
	ID         string         `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_resource_key,priority:1"`
	ResourceID string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_resource_key,priority:2"`
	Key        string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_resource_key,priority:3"`
	Status     int            `gorm:"type:INTEGER NOT NULL"`
	Response   datatypes.JSON `gorm:"type:TEXT"`
	CreatedAt  time.Time      `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time      `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
