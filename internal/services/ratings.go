package services

import (
	"fmt"
	"sync"
	"time"

	"newsline/internal/db"
	"newsline/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecomputeAuthorRating rebuilds the derived author rating from scratch:
// three times the sum of the author's post ratings plus the sum of the
// ratings on comments written by the author's user. Missing aggregates
// count as zero. The author row is locked for the duration of the
// transaction so concurrent recomputes for the same author serialize
// instead of losing updates.
func RecomputeAuthorRating(conn *gorm.DB, authorID uint) (int, error) {
	var rating int
	err := conn.Transaction(func(tx *gorm.DB) error {
		var author models.Author
		q := tx
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&author, authorID).Error; err != nil {
			return fmt.Errorf("unable to load author %d: %w", authorID, err)
		}

		var postSum, commentSum int
		if err := tx.Model(&models.Post{}).
			Where("author_id = ?", author.ID).
			Select("COALESCE(SUM(rating), 0)").
			Scan(&postSum).Error; err != nil {
			return fmt.Errorf("unable to sum post ratings: %w", err)
		}
		if err := tx.Model(&models.Comment{}).
			Where("user_id = ?", author.UserID).
			Select("COALESCE(SUM(rating), 0)").
			Scan(&commentSum).Error; err != nil {
			return fmt.Errorf("unable to sum comment ratings: %w", err)
		}

		rating = postSum*3 + commentSum
		return tx.Model(&author).UpdateColumn("rating", rating).Error
	})
	return rating, err
}

// BestAuthor returns the author with the highest rating.
func BestAuthor(conn *gorm.DB) (*models.Author, error) {
	var author models.Author
	if err := conn.Preload("User").Order("rating DESC").First(&author).Error; err != nil {
		return nil, fmt.Errorf("unable to find best author: %w", err)
	}
	return &author, nil
}

// RatingService recomputes author ratings off the request path. Vote
// handlers schedule the affected author here; the worker batches and
// dedups so a burst of votes on one author costs a single recompute.
type RatingService struct {
	conn    *gorm.DB
	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	ratingService     *RatingService
	ratingServiceOnce sync.Once
)

// GetRatingService returns the singleton bound to the global database.
func GetRatingService() *RatingService {
	ratingServiceOnce.Do(func() {
		ratingService = NewRatingService(db.DB)
	})
	return ratingService
}

// NewRatingService starts a rating worker over the given connection.
func NewRatingService(conn *gorm.DB) *RatingService {
	s := &RatingService{
		conn:    conn,
		queue:   make(chan uint, 1000),
		pending: make(map[uint]bool),
	}
	go s.worker()
	return s
}

// ScheduleUpdate queues an author for recompute, skipping authors
// already waiting.
func (s *RatingService) ScheduleUpdate(authorID uint) {
	s.mu.Lock()
	if s.pending[authorID] {
		s.mu.Unlock()
		return
	}
	s.pending[authorID] = true
	s.mu.Unlock()

	select {
	case s.queue <- authorID:
	default:
		s.mu.Lock()
		delete(s.pending, authorID)
		s.mu.Unlock()
		log.Warn().Uint("author_id", authorID).Msg("Rating queue full, skipping recompute")
	}
}

func (s *RatingService) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case authorID := <-s.queue:
			batch = append(batch, authorID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *RatingService) processBatch(authorIDs []uint) {
	for _, authorID := range authorIDs {
		if _, err := RecomputeAuthorRating(s.conn, authorID); err != nil {
			log.Warn().Err(err).Uint("author_id", authorID).Msg("Author rating recompute failed")
		}

		s.mu.Lock()
		delete(s.pending, authorID)
		s.mu.Unlock()
	}
}
