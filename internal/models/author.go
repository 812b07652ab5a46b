package models

import (
	"time"
)

// Author is the publishing profile attached one-to-one to a User.
// Rating is derived from post and comment ratings and is only ever
// written by the rating service; treat it as a cached aggregate.
type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Rating    int       `gorm:"default:0" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
