package models

import (
	"time"
)

// Role values. Explicit enumeration instead of ad hoc staff/admin flags
// so permission checks stay exhaustive.
const (
	RoleReader = "reader"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"` // login identity
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash
	Role      string    `gorm:"size:20;default:'reader';not null" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// No DeletedAt: accounts are deactivated via IsActive, never hard-deleted
}

// CanPublish reports whether the user may create or edit posts.
func (u *User) CanPublish() bool {
	return u.Role == RoleAuthor || u.Role == RoleAdmin
}

// FullName is used for email personalization and post bylines.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	return u.FirstName + " " + u.LastName
}
