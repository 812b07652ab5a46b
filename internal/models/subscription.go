package models

import (
	"time"
)

// Subscription links a user to a category they follow. The composite
// unique index makes subscribe/unsubscribe idempotent at the schema level.
type Subscription struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_category" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CategoryID uint      `gorm:"not null;uniqueIndex:idx_user_category;index" json:"category_id"`
	Category   Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category"`
	CreatedAt  time.Time `json:"created_at"`
}
