package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"newsline/internal/db"
	"newsline/internal/middleware"
	"newsline/internal/models"
	"newsline/internal/services"
	"newsline/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VoteHandler struct {
	ratings *services.RatingService
}

func NewVoteHandler(ratings *services.RatingService) *VoteHandler {
	return &VoteHandler{ratings: ratings}
}

// Like handles upvotes: POST /vote/:type/:id
func (h *VoteHandler) Like(c *gin.Context) {
	h.vote(c, 1)
}

// Dislike handles downvotes: POST /vote/:type/:id/down
func (h *VoteHandler) Dislike(c *gin.Context) {
	h.vote(c, -1)
}

// vote records a ±1 vote on a post or comment. One vote per user per
// item; the rating column moves by exactly the vote value and nothing
// else, then the affected author's rating recompute is scheduled.
func (h *VoteHandler) vote(c *gin.Context, value int) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	itemType := c.Param("type") // "post" or "comment"
	if itemType != "post" && itemType != "comment" {
		c.Status(http.StatusBadRequest)
		return
	}
	itemID := uint(utils.StringToInt(c.Param("id")))

	tx := db.DB.Begin()

	// The target must exist before any vote state is written; otherwise an
	// orphan row would block the user's vote once the item appears later.
	var targetErr error
	if itemType == "post" {
		targetErr = tx.First(&models.Post{}, itemID).Error
	} else {
		targetErr = tx.First(&models.Comment{}, itemID).Error
	}
	if targetErr != nil {
		tx.Rollback()
		if errors.Is(targetErr, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
		} else {
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	query := tx.Where("user_id = ?", user.ID)
	if itemType == "post" {
		query = query.Where("post_id = ?", itemID)
	} else {
		query = query.Where("comment_id = ?", itemID)
	}

	// Already voted: report the current rating without touching it
	var existing models.Vote
	if err := query.First(&existing).Error; err == nil {
		tx.Rollback()
		c.String(http.StatusOK, fmt.Sprintf("%d", h.currentRating(itemType, itemID)))
		return
	}

	vote := models.Vote{
		UserID: user.ID,
		Value:  value,
	}
	if itemType == "post" {
		vote.PostID = &itemID
	} else {
		vote.CommentID = &itemID
	}
	if err := tx.Create(&vote).Error; err != nil {
		tx.Rollback()
		c.Status(http.StatusInternalServerError)
		return
	}

	// Atomic increment so concurrent votes never lose updates
	var err error
	if itemType == "post" {
		err = tx.Model(&models.Post{}).Where("id = ?", itemID).
			UpdateColumn("rating", gorm.Expr("rating + ?", value)).Error
	} else {
		err = tx.Model(&models.Comment{}).Where("id = ?", itemID).
			UpdateColumn("rating", gorm.Expr("rating + ?", value)).Error
	}
	if err != nil {
		tx.Rollback()
		c.Status(http.StatusInternalServerError)
		return
	}

	tx.Commit()

	h.scheduleAuthorRecompute(itemType, itemID)

	c.String(http.StatusOK, fmt.Sprintf("%d", h.currentRating(itemType, itemID)))
}

// scheduleAuthorRecompute finds the author whose derived rating the vote
// affects: the post's author, or the commenting user's author profile.
func (h *VoteHandler) scheduleAuthorRecompute(itemType string, itemID uint) {
	if itemType == "post" {
		var post models.Post
		if err := db.DB.First(&post, itemID).Error; err == nil {
			h.ratings.ScheduleUpdate(post.AuthorID)
		}
		return
	}

	var comment models.Comment
	if err := db.DB.First(&comment, itemID).Error; err != nil {
		return
	}
	author, err := services.AuthorForUser(db.DB, comment.UserID)
	if err != nil {
		return // commenter is not an author, nothing to recompute
	}
	h.ratings.ScheduleUpdate(author.ID)
}

func (h *VoteHandler) currentRating(itemType string, itemID uint) int {
	if itemType == "post" {
		var post models.Post
		db.DB.First(&post, itemID)
		return post.Rating
	}
	var comment models.Comment
	db.DB.First(&comment, itemID)
	return comment.Rating
}
