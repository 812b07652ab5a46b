package models

import (
	"time"
)

type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    *uint     `gorm:"index" json:"post_id"`
	CommentID *uint     `gorm:"index" json:"comment_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
}

// One vote per item per user is checked in the handler before insert;
// Postgres additionally enforces it with partial unique indexes created
// in db.Init since gorm tags cannot express the NULL-aware pair.
