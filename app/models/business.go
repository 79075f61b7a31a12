package models

import (
	"time"

	"gorm.io/gorm"
)

// Business is a directory listing owned by a user. Listing management lives
// in a separate service; billing only needs the ownership relation so manual
// payment submissions can reference the listing they pay for.
type Business struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Slug      string         `gorm:"type:varchar(200);uniqueIndex" json:"slug"`
	City      string         `gorm:"type:varchar(100);index" json:"city"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
