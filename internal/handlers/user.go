package handlers

import (
	"net/http"

	"newsline/internal/db"
	"newsline/internal/middleware"
	"newsline/internal/models"
	"newsline/internal/services"
	"newsline/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	posts         *services.PostService
	subscriptions *services.SubscriptionService
}

func NewUserHandler(posts *services.PostService, subscriptions *services.SubscriptionService) *UserHandler {
	return &UserHandler{posts: posts, subscriptions: subscriptions}
}

// Profile shows a public user page: /u/:id
func (h *UserHandler) Profile(c *gin.Context) {
	var user models.User
	if err := db.DB.First(&user, utils.StringToInt(c.Param("id"))).Error; err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	obj := gin.H{
		"Title": user.Username,
		"User":  user,
	}

	if author, err := services.AuthorForUser(db.DB, user.ID); err == nil {
		posts, _ := h.posts.ByAuthor(author.ID)
		fillCommentCounts(posts)
		obj["Author"] = author
		obj["Posts"] = posts
	}

	Render(c, http.StatusOK, "user/profile.html", obj)
}

// MyPosts lists the signed-in author's posts and their subscriptions.
func (h *UserHandler) MyPosts(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	subscriptions, _ := h.subscriptions.ListForUser(user.ID)

	obj := gin.H{
		"Title":         "My posts",
		"Subscriptions": subscriptions,
	}

	if author, err := services.AuthorForUser(db.DB, user.ID); err == nil {
		posts, _ := h.posts.ByAuthor(author.ID)
		fillCommentCounts(posts)
		obj["Author"] = author
		obj["Posts"] = posts
	}

	Render(c, http.StatusOK, "user/my_posts.html", obj)
}

// ShowUpgrade renders the become-an-author page.
func (h *UserHandler) ShowUpgrade(c *gin.Context) {
	Render(c, http.StatusOK, "user/upgrade.html", gin.H{"Title": "Become an author"})
}

// Upgrade creates the author profile for the signed-in user and promotes
// their role.
func (h *UserHandler) Upgrade(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	if _, err := services.EnsureAuthor(db.DB, user); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not upgrade your account.")
		return
	}
	c.Redirect(http.StatusFound, "/my/posts")
}

// BestAuthor shows the author with the highest rating.
func (h *UserHandler) BestAuthor(c *gin.Context) {
	author, err := services.BestAuthor(db.DB)
	if err != nil {
		RenderError(c, http.StatusNotFound, "No authors yet.")
		return
	}

	posts, _ := h.posts.ByAuthor(author.ID)
	fillCommentCounts(posts)

	Render(c, http.StatusOK, "user/best_author.html", gin.H{
		"Title":  "Best author",
		"Author": author,
		"Posts":  posts,
	})
}
