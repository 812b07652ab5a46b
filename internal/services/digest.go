package services

import (
	"fmt"
	"time"

	"newsline/internal/models"
	"newsline/internal/utils"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// DigestService assembles and sends the weekly digest: every subscriber of
// a category touched this week gets one email listing the week's posts in
// the categories they follow.
type DigestService struct {
	conn    *gorm.DB
	mail    *MailQueue
	baseURL string
	now     func() time.Time // injectable for tests
}

func NewDigestService(conn *gorm.DB, mail *MailQueue, baseURL string) *DigestService {
	return &DigestService{conn: conn, mail: mail, baseURL: baseURL, now: time.Now}
}

// digestEntry is one post row in the rendered digest.
type digestEntry struct {
	Title      string
	Link       string
	Preview    string
	Categories string
	CreatedAt  time.Time
}

// Run executes one digest pass. The window is date-based: a post is
// included when its creation date is less than 7 days before today, so
// posts dated today through six days ago are in and anything seven or
// more days old is out. Recipients already logged for this ISO-week
// period are skipped, which makes re-running the job safe.
func (s *DigestService) Run() error {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -6)

	var posts []models.Post
	if err := s.conn.Preload("Categories").
		Where("created_at >= ?", cutoff).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return fmt.Errorf("unable to load posts for digest: %w", err)
	}
	if len(posts) == 0 {
		log.Info().Msg("No posts this week, skipping digest")
		return nil
	}

	// Distinct categories touched this week
	categoryIDs := lo.Uniq(lo.FlatMap(posts, func(post models.Post, _ int) []uint {
		return lo.Map(post.Categories, func(category models.Category, _ int) uint {
			return category.ID
		})
	}))

	// Union of subscriber emails over those categories, deduplicated
	var subscribers []models.User
	if err := s.conn.Distinct("users.*").
		Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
		Where("subscriptions.category_id IN ?", categoryIDs).
		Find(&subscribers).Error; err != nil {
		return fmt.Errorf("unable to load digest recipients: %w", err)
	}

	year, week := now.ISOWeek()
	period := fmt.Sprintf("%d-W%02d", year, week)

	for _, recipient := range subscribers {
		if err := s.sendTo(recipient, posts, period); err != nil {
			log.Error().Err(err).Str("email", recipient.Email).Msg("Digest assembly failed for recipient")
		}
	}
	return nil
}

// sendTo renders and queues one recipient's digest, keeping only the
// week's posts in categories they follow.
func (s *DigestService) sendTo(recipient models.User, weekPosts []models.Post, period string) error {
	var logged int64
	s.conn.Model(&models.DigestLog{}).
		Where("period = ? AND email = ?", period, recipient.Email).
		Count(&logged)
	if logged > 0 {
		return nil // already delivered this period
	}

	var subscriptions []models.Subscription
	if err := s.conn.Where("user_id = ?", recipient.ID).Find(&subscriptions).Error; err != nil {
		return fmt.Errorf("unable to load subscriptions: %w", err)
	}
	followed := lo.SliceToMap(subscriptions, func(sub models.Subscription) (uint, struct{}) {
		return sub.CategoryID, struct{}{}
	})

	var entries []digestEntry
	for _, post := range weekPosts {
		matched := lo.Filter(post.Categories, func(category models.Category, _ int) bool {
			_, ok := followed[category.ID]
			return ok
		})
		if len(matched) == 0 {
			continue
		}
		entries = append(entries, digestEntry{
			Title:   post.Title,
			Link:    fmt.Sprintf("%s/p/%s", s.baseURL, post.Slug),
			Preview: utils.Censor(post.Preview()),
			Categories: lo.Reduce(matched, func(acc string, category models.Category, i int) string {
				if i == 0 {
					return category.Name
				}
				return acc + ", " + category.Name
			}, ""),
			CreatedAt: post.CreatedAt,
		})
	}
	if len(entries) == 0 {
		return nil
	}

	html, err := renderEmail("weekly_digest.html", map[string]interface{}{
		"Recipient": recipient.FullName(),
		"Entries":   entries,
		"BaseURL":   s.baseURL,
	})
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Hi %s, your weekly digest:\n\n", recipient.FullName())
	for _, entry := range entries {
		text += fmt.Sprintf("- %s (%s)\n  %s\n", entry.Title, entry.Categories, entry.Link)
	}

	s.mail.Enqueue("digest:"+period+":"+recipient.Email, Message{
		To:      recipient.Email,
		Subject: "Your Newsline Weekly Digest",
		Text:    text,
		HTML:    html,
	})

	// The marker is written at enqueue time: a crash between enqueue and
	// SMTP delivery loses this week's mail for the recipient rather than
	// duplicating it on the next run.
	return s.conn.Create(&models.DigestLog{
		Period: period,
		Email:  recipient.Email,
		SentAt: s.now(),
	}).Error
}
