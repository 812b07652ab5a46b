package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"newsline/internal/db"
	"newsline/internal/middleware"
	"newsline/internal/models"
	"newsline/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// PostForm binds the submit/edit form. Kind is validated against the
// registered postkind rule.
type PostForm struct {
	Title       string `form:"title" binding:"required,max=128"`
	Kind        string `form:"kind" binding:"required,postkind"`
	Body        string `form:"body" binding:"required"`
	CategoryIDs []uint `form:"categories" binding:"required,min=1"`
}

// fillCommentCounts batch-fills the comment counter on list pages
func fillCommentCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	db.DB.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&results)

	countMap := make(map[uint]int)
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
}

// List shows all posts, newest first, paginated.
func (h *PostHandler) List(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}

	perPage := 20
	offset := (page - 1) * perPage

	var total int64
	db.DB.Model(&models.Post{}).Count(&total)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var posts []models.Post
	db.DB.Preload("Author.User").Preload("Categories").
		Order("created_at DESC").
		Limit(perPage).Offset(offset).
		Find(&posts)
	fillCommentCounts(posts)

	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)

	Render(c, http.StatusOK, "post/list.html", gin.H{
		"Title":      "Latest",
		"Posts":      posts,
		"Categories": categories,
		"Page":       page,
		"TotalPages": totalPages,
	})
}

// Detail shows one post with its comments.
func (h *PostHandler) Detail(c *gin.Context) {
	post, err := h.posts.BySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			RenderError(c, http.StatusNotFound, "Post not found.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not load the post.")
		return
	}

	var comments []models.Comment
	db.DB.Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Find(&comments)

	Render(c, http.StatusOK, "post/detail.html", gin.H{
		"Title":    post.Title,
		"Post":     post,
		"Comments": comments,
	})
}

// Search filters posts by title, author first name and created-after date.
func (h *PostHandler) Search(c *gin.Context) {
	filter := services.SearchFilter{
		Title:           c.Query("title"),
		AuthorFirstName: c.Query("author"),
	}
	if after := c.Query("created_after"); after != "" {
		if t, err := time.Parse("2006-01-02", after); err == nil {
			filter.CreatedAfter = &t
		}
	}

	posts, err := h.posts.Search(filter, 100)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Search failed.")
		return
	}
	fillCommentCounts(posts)

	Render(c, http.StatusOK, "post/search.html", gin.H{
		"Title":        "Search",
		"Posts":        posts,
		"QueryTitle":   filter.Title,
		"QueryAuthor":  filter.AuthorFirstName,
		"CreatedAfter": c.Query("created_after"),
	})
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)
	Render(c, http.StatusOK, "post/form.html", gin.H{
		"Title":      "Publish",
		"Categories": categories,
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	author, err := services.AuthorForUser(db.DB, user.ID)
	if err != nil {
		c.Redirect(http.StatusFound, "/my/upgrade")
		return
	}

	var form PostForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderFormError(c, nil, "Title, kind, body and at least one category are required.")
		return
	}

	post, err := h.posts.Create(author, form.Kind, form.Title, form.Body, form.CategoryIDs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDailyPostLimit):
			c.Redirect(http.StatusFound, "/my/posts")
		case errors.Is(err, services.ErrCategoryNotFound):
			h.renderFormError(c, nil, "One of the selected categories does not exist.")
		default:
			RenderError(c, http.StatusInternalServerError, "Could not publish the post.")
		}
		return
	}

	c.Redirect(http.StatusFound, "/p/"+post.Slug)
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	post, ok := h.ownedPost(c)
	if !ok {
		return
	}

	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)
	Render(c, http.StatusOK, "post/form.html", gin.H{
		"Title":      "Edit",
		"Post":       post,
		"Categories": categories,
	})
}

func (h *PostHandler) Update(c *gin.Context) {
	post, ok := h.ownedPost(c)
	if !ok {
		return
	}

	var form PostForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderFormError(c, post, "Title, kind, body and at least one category are required.")
		return
	}

	if err := h.posts.Update(post, form.Kind, form.Title, form.Body, form.CategoryIDs); err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			h.renderFormError(c, post, "One of the selected categories does not exist.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not update the post.")
		return
	}

	c.Redirect(http.StatusFound, "/p/"+post.Slug)
}

func (h *PostHandler) Delete(c *gin.Context) {
	post, ok := h.ownedPost(c)
	if !ok {
		return
	}

	if err := h.posts.Delete(post); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the post.")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// CreateComment adds a comment to a post.
func (h *PostHandler) CreateComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	post, err := h.posts.BySlug(c.Param("slug"))
	if err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	body := c.PostForm("body")
	if body == "" {
		c.Redirect(http.StatusFound, "/p/"+post.Slug)
		return
	}

	comment := models.Comment{
		PostID: post.ID,
		UserID: user.ID,
		Body:   body,
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not save your comment.")
		return
	}

	c.Redirect(http.StatusFound, "/p/"+post.Slug)
}

// ownedPost loads the post behind :slug and checks the current user may
// edit it (its author, or an admin).
func (h *PostHandler) ownedPost(c *gin.Context) (*models.Post, bool) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	post, err := h.posts.BySlug(c.Param("slug"))
	if err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return nil, false
	}

	if post.Author.UserID != user.ID && user.Role != models.RoleAdmin {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return nil, false
	}
	return post, true
}

func (h *PostHandler) renderFormError(c *gin.Context, post *models.Post, message string) {
	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)
	obj := gin.H{
		"Title":      "Publish",
		"Categories": categories,
		"Error":      message,
	}
	if post != nil {
		obj["Title"] = "Edit"
		obj["Post"] = post
	}
	Render(c, http.StatusBadRequest, "post/form.html", obj)
}
