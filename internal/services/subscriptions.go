package services

import (
	"errors"
	"fmt"

	"newsline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrPostNotFound     = errors.New("post not found")
)

// SubscriptionService manages the user-to-category follow relation and
// sends the confirmation emails tied to each change.
type SubscriptionService struct {
	conn *gorm.DB
	mail *MailQueue
}

func NewSubscriptionService(conn *gorm.DB, mail *MailQueue) *SubscriptionService {
	return &SubscriptionService{conn: conn, mail: mail}
}

// Subscribe adds the user to the category's subscriber set. Repeated calls
// are no-ops; the confirmation email is only sent on an actual change.
func (s *SubscriptionService) Subscribe(user *models.User, categoryID uint) error {
	var category models.Category
	if err := s.conn.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("unable to load category %d: %w", categoryID, err)
	}

	// The unique pair index arbitrates concurrent subscribes; a conflicting
	// insert is the idempotent no-op, not an error.
	subscription := models.Subscription{UserID: user.ID, CategoryID: category.ID}
	result := s.conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&subscription)
	if result.Error != nil {
		return fmt.Errorf("unable to create subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil // already subscribed
	}

	s.mail.Enqueue(fmt.Sprintf("sub:%d:%d", category.ID, user.ID), Message{
		To:      user.Email,
		Subject: category.Name,
		Text:    fmt.Sprintf("Hi %s, you are now subscribed to updates in %s.", user.FirstName, category.Name),
	})
	return nil
}

// Unsubscribe removes the user from the category's subscriber set.
// Removing a subscription that does not exist is a no-op.
func (s *SubscriptionService) Unsubscribe(user *models.User, categoryID uint) error {
	var category models.Category
	if err := s.conn.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("unable to load category %d: %w", categoryID, err)
	}

	result := s.conn.Where("user_id = ? AND category_id = ?", user.ID, category.ID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return fmt.Errorf("unable to delete subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil // was not subscribed
	}

	s.mail.Enqueue(fmt.Sprintf("unsub:%d:%d", category.ID, user.ID), Message{
		To:      user.Email,
		Subject: category.Name,
		Text:    fmt.Sprintf("Hi %s, you have unsubscribed from updates in %s.", user.FirstName, category.Name),
	})
	return nil
}

// IsSubscribed reports whether the user follows the category.
func (s *SubscriptionService) IsSubscribed(userID, categoryID uint) bool {
	var count int64
	s.conn.Model(&models.Subscription{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Count(&count)
	return count > 0
}

// ListForUser returns the user's subscriptions with categories preloaded.
func (s *SubscriptionService) ListForUser(userID uint) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	if err := s.conn.Preload("Category").
		Where("user_id = ?", userID).
		Find(&subscriptions).Error; err != nil {
		return nil, fmt.Errorf("unable to list subscriptions: %w", err)
	}
	return subscriptions, nil
}

// Subscribers returns every user following the category.
func (s *SubscriptionService) Subscribers(categoryID uint) ([]models.User, error) {
	var users []models.User
	if err := s.conn.
		Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
		Where("subscriptions.category_id = ?", categoryID).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("unable to list subscribers: %w", err)
	}
	return users, nil
}
