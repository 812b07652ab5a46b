package models

import (
	"time"
)

// DigestLog marks a weekly digest as delivered to a recipient for one
// period (ISO week key like "2026-W35"). Re-running the digest job skips
// recipients that already have a row for the period.
type DigestLog struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	Period string    `gorm:"size:10;not null;uniqueIndex:idx_period_email" json:"period"`
	Email  string    `gorm:"size:120;not null;uniqueIndex:idx_period_email" json:"email"`
	SentAt time.Time `json:"sent_at"`
}
