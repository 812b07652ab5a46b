package services

import (
	"fmt"

	"newsline/internal/models"
	"newsline/internal/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NotificationService fans out "new post in your category" emails.
// Each (post, category, recipient) delivery is an independent queued job,
// so one bad address never blocks the rest of the fan-out.
type NotificationService struct {
	conn    *gorm.DB
	mail    *MailQueue
	baseURL string
}

func NewNotificationService(conn *gorm.DB, mail *MailQueue, baseURL string) *NotificationService {
	return &NotificationService{conn: conn, mail: mail, baseURL: baseURL}
}

// NotifyNewPostCategories runs after categories are added to a post (on
// create, or on edit when new links appear; removals do not notify). Every
// subscriber of each newly added category gets a personalized email with
// the post title, body and a deep link.
func (s *NotificationService) NotifyNewPostCategories(post *models.Post, added []models.Category) {
	for _, category := range added {
		var subscriptions []models.Subscription
		if err := s.conn.Preload("User").
			Where("category_id = ?", category.ID).
			Find(&subscriptions).Error; err != nil {
			log.Error().Err(err).Uint("category_id", category.ID).Msg("Unable to load subscribers for notification")
			continue
		}

		link := fmt.Sprintf("%s/p/%s", s.baseURL, post.Slug)
		for _, subscription := range subscriptions {
			recipient := subscription.User

			html, err := renderEmail("post_created.html", map[string]interface{}{
				"Recipient": recipient.FullName(),
				"Category":  category.Name,
				"Title":     post.Title,
				"Body":      utils.Censor(post.Body),
				"Link":      link,
				"CreatedAt": post.CreatedAt,
			})
			if err != nil {
				log.Error().Err(err).Msg("Unable to render post notification")
				continue
			}

			s.mail.Enqueue(
				fmt.Sprintf("post:%d:cat:%d:%s", post.ID, category.ID, recipient.Email),
				Message{
					To:      recipient.Email,
					Subject: post.Title,
					Text:    fmt.Sprintf("Hi %s, a new post in %s:\n\n%s\n\n%s\n\nRead it here: %s", recipient.FullName(), category.Name, post.Title, utils.Censor(post.Body), link),
					HTML:    html,
				})
		}
	}
}
