package services

import (
	"errors"
	"fmt"

	"newsline/internal/models"

	"gorm.io/gorm"
)

var ErrNotAnAuthor = errors.New("user has no author profile")

// EnsureAuthor upgrades a user to author: creates the author profile if
// missing and promotes the role. Safe to call repeatedly.
func EnsureAuthor(conn *gorm.DB, user *models.User) (*models.Author, error) {
	var author models.Author
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).
			FirstOrCreate(&author, models.Author{UserID: user.ID}).Error; err != nil {
			return fmt.Errorf("unable to create author profile: %w", err)
		}
		if user.Role == models.RoleReader {
			user.Role = models.RoleAuthor
			if err := tx.Model(user).Update("role", models.RoleAuthor).Error; err != nil {
				return fmt.Errorf("unable to promote user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	author.User = *user
	return &author, nil
}

// AuthorForUser returns the author profile for the user, or ErrNotAnAuthor.
func AuthorForUser(conn *gorm.DB, userID uint) (*models.Author, error) {
	var author models.Author
	if err := conn.Where("user_id = ?", userID).First(&author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAnAuthor
		}
		return nil, fmt.Errorf("unable to load author profile: %w", err)
	}
	return &author, nil
}
