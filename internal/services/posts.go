package services

import (
	"errors"
	"fmt"
	"time"

	"newsline/internal/models"
	"newsline/internal/utils"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ErrDailyPostLimit is returned when an author already published the
// maximum number of posts allowed per calendar day.
var ErrDailyPostLimit = errors.New("daily post limit reached")

// DailyPostLimit caps posts per author per calendar day.
const DailyPostLimit = 3

// PostService owns post lifecycle: create, update, delete, lookups and
// the search filter. Category additions flow into the notification
// dispatcher from here.
type PostService struct {
	conn   *gorm.DB
	notify *NotificationService
}

func NewPostService(conn *gorm.DB, notify *NotificationService) *PostService {
	return &PostService{conn: conn, notify: notify}
}

// Create publishes a post under the given author and links it to the
// given categories, then notifies their subscribers.
func (s *PostService) Create(author *models.Author, kind, title, body string, categoryIDs []uint) (*models.Post, error) {
	if kind != models.PostKindArticle && kind != models.PostKindNews {
		return nil, fmt.Errorf("invalid post kind %q", kind)
	}

	var todayCount int64
	startOfDay := startOfToday()
	s.conn.Model(&models.Post{}).
		Where("author_id = ? AND created_at >= ?", author.ID, startOfDay).
		Count(&todayCount)
	if todayCount >= DailyPostLimit {
		return nil, ErrDailyPostLimit
	}

	categories, err := s.loadCategories(categoryIDs)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, ErrCategoryNotFound
	}

	post := models.Post{
		AuthorID: author.ID,
		Kind:     kind,
		Title:    title,
		Body:     body,
		Slug:     s.uniqueSlug(title, 0),
	}

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("unable to create post: %w", err)
		}
		return tx.Model(&post).Association("Categories").Replace(categories)
	})
	if err != nil {
		return nil, err
	}
	post.Categories = categories

	// Fan-out on write: every category here is newly associated
	s.notify.NotifyNewPostCategories(&post, categories)
	return &post, nil
}

// Update edits a post in place. Only categories that were not linked
// before trigger notifications; removals stay silent.
func (s *PostService) Update(post *models.Post, kind, title, body string, categoryIDs []uint) error {
	if kind != models.PostKindArticle && kind != models.PostKindNews {
		return fmt.Errorf("invalid post kind %q", kind)
	}

	categories, err := s.loadCategories(categoryIDs)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return ErrCategoryNotFound
	}

	previousIDs := lo.Map(post.Categories, func(category models.Category, _ int) uint {
		return category.ID
	})
	added := lo.Filter(categories, func(category models.Category, _ int) bool {
		return !lo.Contains(previousIDs, category.ID)
	})

	if title != post.Title {
		post.Slug = s.uniqueSlug(title, post.ID)
	}
	post.Title = title
	post.Kind = kind
	post.Body = body

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(post).Error; err != nil {
			return fmt.Errorf("unable to update post: %w", err)
		}
		return tx.Model(post).Association("Categories").Replace(categories)
	})
	if err != nil {
		return err
	}
	post.Categories = categories

	if len(added) > 0 {
		s.notify.NotifyNewPostCategories(post, added)
	}
	return nil
}

// Delete removes a post; join rows and comments cascade.
func (s *PostService) Delete(post *models.Post) error {
	if err := s.conn.Select("Categories").Delete(post).Error; err != nil {
		return fmt.Errorf("unable to delete post: %w", err)
	}
	return nil
}

// BySlug loads a post with its author and categories.
func (s *PostService) BySlug(slugValue string) (*models.Post, error) {
	var post models.Post
	err := s.conn.Preload("Author.User").Preload("Categories").
		Where("slug = ?", slugValue).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("unable to load post %q: %w", slugValue, err)
	}
	return &post, nil
}

// SearchFilter mirrors the search form: title substring, author first
// name substring, and a created-after date, all optional.
type SearchFilter struct {
	Title           string
	AuthorFirstName string
	CreatedAfter    *time.Time
}

// Search returns posts matching the filter, newest first.
func (s *PostService) Search(filter SearchFilter, limit int) ([]models.Post, error) {
	query := s.conn.Model(&models.Post{}).
		Preload("Author.User").Preload("Categories").
		Order("posts.created_at DESC").
		Limit(limit)

	if filter.Title != "" {
		query = query.Where("LOWER(posts.title) LIKE LOWER(?)", "%"+filter.Title+"%")
	}
	if filter.AuthorFirstName != "" {
		query = query.
			Joins("JOIN authors ON authors.id = posts.author_id").
			Joins("JOIN users ON users.id = authors.user_id").
			Where("users.first_name LIKE ?", "%"+filter.AuthorFirstName+"%")
	}
	if filter.CreatedAfter != nil {
		query = query.Where("posts.created_at > ?", *filter.CreatedAfter)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("unable to search posts: %w", err)
	}
	return posts, nil
}

// ByAuthor lists an author's posts, newest first.
func (s *PostService) ByAuthor(authorID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := s.conn.Preload("Categories").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("unable to list author posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) loadCategories(categoryIDs []uint) ([]models.Category, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var categories []models.Category
	if err := s.conn.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("unable to load categories: %w", err)
	}
	if len(categories) != len(lo.Uniq(categoryIDs)) {
		return nil, ErrCategoryNotFound
	}
	return categories, nil
}

// uniqueSlug derives the slug from the title, appending a short code when
// another post already owns it.
func (s *PostService) uniqueSlug(title string, selfID uint) string {
	base := slug.Make(title)
	candidate := base
	for {
		var count int64
		s.conn.Model(&models.Post{}).
			Where("slug = ? AND id <> ?", candidate, selfID).
			Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = base + "-" + utils.RandomCode(4)
	}
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
