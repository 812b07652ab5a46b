package router

import (
	"newsline/internal/handlers"
	"newsline/internal/middleware"
	"newsline/internal/models"
	"newsline/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("postkind", func(fl validator.FieldLevel) bool {
			kind := fl.Field().String()
			return kind == models.PostKindArticle || kind == models.PostKindNews
		})
	}
}

// Deps carries the shared services the handlers are built from.
type Deps struct {
	Posts         *services.PostService
	Subscriptions *services.SubscriptionService
	Ratings       *services.RatingService
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	authHandler := handlers.NewAuthHandler()
	postHandler := handlers.NewPostHandler(deps.Posts)
	voteHandler := handlers.NewVoteHandler(deps.Ratings)
	categoryHandler := handlers.NewCategoryHandler(deps.Subscriptions)
	userHandler := handlers.NewUserHandler(deps.Posts, deps.Subscriptions)

	// Public routes
	r.GET("/", postHandler.List)
	r.GET("/search", postHandler.Search)
	r.GET("/p/:slug", postHandler.Detail)
	r.GET("/categories", categoryHandler.List)
	r.GET("/c/:id", categoryHandler.Detail)
	r.GET("/u/:id", userHandler.Profile)
	r.GET("/authors/best", userHandler.BestAuthor)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Signed-in routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/p/:slug/comment", postHandler.CreateComment)
		authorized.POST("/vote/:type/:id", voteHandler.Like)
		authorized.POST("/vote/:type/:id/down", voteHandler.Dislike)
		authorized.POST("/c/:id/subscribe", categoryHandler.Subscribe)
		authorized.POST("/c/:id/unsubscribe", categoryHandler.Unsubscribe)

		authorized.GET("/my/posts", userHandler.MyPosts)
		authorized.GET("/my/upgrade", userHandler.ShowUpgrade)
		authorized.POST("/my/upgrade", userHandler.Upgrade)
	}

	// Author-only routes
	publishing := r.Group("/")
	publishing.Use(middleware.AuthorRequired())
	{
		publishing.GET("/submit", postHandler.ShowCreate)
		publishing.POST("/submit", postHandler.Create)
		publishing.GET("/p/:slug/edit", postHandler.ShowEdit)
		publishing.POST("/p/:slug/edit", postHandler.Update)
		publishing.DELETE("/p/:slug", postHandler.Delete)
	}
}
