package models

import "time"

// Subscription holds the current membership state for a user. There is at
// most one row per user; a missing row means the user is on the free tier.
type Subscription struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Tier      int        `gorm:"not null;default:0;index" json:"tier"`
	ExpiresAt *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription grants paid benefits at t.
// A nil or past expiry means the stored tier no longer applies.
func (s *Subscription) IsActive(t time.Time) bool {
	return s.Tier > 0 && s.ExpiresAt != nil && s.ExpiresAt.After(t)
}
