package main

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"newsline/internal/db"
	"newsline/internal/middleware"
	"newsline/internal/router"
	"newsline/internal/services"
	"newsline/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading env vars from system")
	}

	// Database
	db.Init()

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Shared services
	mailQueue := services.GetMailQueue()
	ratings := services.GetRatingService()
	subscriptions := services.NewSubscriptionService(db.DB, mailQueue)
	notifications := services.NewNotificationService(db.DB, mailQueue, baseURL)
	posts := services.NewPostService(db.DB, notifications)
	digest := services.NewDigestService(db.DB, mailQueue, baseURL)

	// Weekly digest on a 7-day cadence
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@weekly", func() {
		log.Info().Msg("Running weekly digest")
		if err := digest.Run(); err != nil {
			log.Error().Err(err).Msg("Weekly digest failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule weekly digest")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Gin
	r := gin.Default()

	// Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("newsline_session", store))

	r.HTMLRender = loadTemplates("./web/templates")
	r.Static("/static", "./web/static")

	r.Use(middleware.LoadUser())

	router.RegisterRoutes(r, router.Deps{
		Posts:         posts,
		Subscriptions: subscriptions,
		Ratings:       ratings,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("Newsline server starting")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+1)
		files = append(files, layouts...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"censor":   utils.Censor,
		"markdown": utils.RenderMarkdown,
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"timeAgo": func(t time.Time) string {
			duration := time.Since(t)
			seconds := int(duration.Seconds())

			switch {
			case seconds < 60:
				return fmt.Sprintf("%ds ago", seconds)
			case seconds < 3600:
				return fmt.Sprintf("%dm ago", seconds/60)
			case seconds < 86400:
				return fmt.Sprintf("%dh ago", seconds/3600)
			case seconds < 2592000:
				return fmt.Sprintf("%dd ago", seconds/86400)
			default:
				return t.Format("Jan 2, 2006")
			}
		},
	}

	views, err := filepath.Glob(templatesDir + "/*/*.html")
	if err != nil {
		panic(err)
	}
	for _, view := range views {
		if filepath.Base(filepath.Dir(view)) == "layouts" {
			continue
		}
		name := filepath.Base(filepath.Dir(view)) + "/" + filepath.Base(view)
		r.AddFromFilesFuncs(name, funcMap, assemble(view)...)
	}

	// Top-level pages (error.html)
	pages, err := filepath.Glob(templatesDir + "/*.html")
	if err != nil {
		panic(err)
	}
	for _, page := range pages {
		r.AddFromFilesFuncs(filepath.Base(page), funcMap, assemble(page)...)
	}

	return r
}
