package handlers

import (
	"errors"
	"net/http"
	"time"

	"newsline/internal/db"
	"newsline/internal/middleware"
	"newsline/internal/models"
	"newsline/internal/services"
	"newsline/internal/utils"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	subscriptions *services.SubscriptionService
}

func NewCategoryHandler(subscriptions *services.SubscriptionService) *CategoryHandler {
	return &CategoryHandler{subscriptions: subscriptions}
}

// List shows all categories.
func (h *CategoryHandler) List(c *gin.Context) {
	cacheKey := "categories:all"
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if categories, ok := cached.([]models.Category); ok {
			Render(c, http.StatusOK, "category/list.html", gin.H{
				"Title":      "Categories",
				"Categories": categories,
			})
			return
		}
	}

	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)
	utils.GetCache().Set(cacheKey, categories, 5*time.Minute)

	Render(c, http.StatusOK, "category/list.html", gin.H{
		"Title":      "Categories",
		"Categories": categories,
	})
}

// Detail shows one category with its posts and the viewer's subscribe state.
func (h *CategoryHandler) Detail(c *gin.Context) {
	categoryID := uint(utils.StringToInt(c.Param("id")))

	var category models.Category
	if err := db.DB.First(&category, categoryID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Category not found.")
		return
	}

	var posts []models.Post
	db.DB.Preload("Author.User").Preload("Categories").
		Joins("JOIN post_categories ON post_categories.post_id = posts.id").
		Where("post_categories.category_id = ?", category.ID).
		Order("posts.created_at DESC").
		Find(&posts)
	fillCommentCounts(posts)

	subscribed := false
	if value, exists := c.Get(middleware.CheckUserKey); exists {
		user := value.(*models.User)
		subscribed = h.subscriptions.IsSubscribed(user.ID, category.ID)
	}

	Render(c, http.StatusOK, "category/detail.html", gin.H{
		"Title":      category.Name,
		"Category":   category,
		"Posts":      posts,
		"Subscribed": subscribed,
	})
}

// Subscribe follows a category and sends the confirmation email.
func (h *CategoryHandler) Subscribe(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	categoryID := uint(utils.StringToInt(c.Param("id")))

	if err := h.subscriptions.Subscribe(user, categoryID); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			RenderError(c, http.StatusNotFound, "Category not found.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not subscribe.")
		return
	}
	c.Redirect(http.StatusFound, c.DefaultPostForm("next", "/c/"+c.Param("id")))
}

// Unsubscribe stops following a category.
func (h *CategoryHandler) Unsubscribe(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	categoryID := uint(utils.StringToInt(c.Param("id")))

	if err := h.subscriptions.Unsubscribe(user, categoryID); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			RenderError(c, http.StatusNotFound, "Category not found.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not unsubscribe.")
		return
	}
	c.Redirect(http.StatusFound, c.DefaultPostForm("next", "/c/"+c.Param("id")))
}
