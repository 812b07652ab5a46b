package models

import (
	"time"
)

// Post kinds.
const (
	PostKindArticle = "article"
	PostKindNews    = "news"
)

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:250;not null" json:"slug"` // derived from title at save
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    Author    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Kind      string    `gorm:"size:10;default:'article';not null" json:"kind"` // article or news
	Title     string    `gorm:"size:128;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Rating    int       `gorm:"default:0" json:"rating"` // mutated only by vote ±1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []Category `gorm:"many2many:post_categories;" json:"categories"`

	// Filled on list queries, not a column
	CommentCount int `gorm:"-" json:"comment_count"`
}

// Preview returns the truncated headline used in digests and list pages.
func (p *Post) Preview() string {
	if len(p.Title) > 124 {
		return p.Title[:124] + "..."
	}
	return p.Title
}

// PostCategory is the explicit join row between posts and categories.
// Kept as a model (rather than relying on the implicit m2m table) so the
// notification dispatcher can observe category additions.
type PostCategory struct {
	PostID     uint     `gorm:"primaryKey" json:"post_id"`
	Post       Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post"`
	CategoryID uint     `gorm:"primaryKey" json:"category_id"`
	Category   Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category"`
}
