package db

import (
	"os"

	"newsline/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=newsline port=5432 sslmode=disable"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log.Info().Msg("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Msg("Database migration completed")

	seedCategories()
}

// Migrate runs the schema migration on the given connection. Split out of
// Init so tests can run it against an in-memory database.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Author{},
		&models.Category{},
		&models.Subscription{},
		&models.Post{},
		&models.PostCategory{},
		&models.Comment{},
		&models.Vote{},
		&models.DigestLog{},
	); err != nil {
		return err
	}

	// One vote per user per post/comment. Partial indexes because the two
	// target columns are nullable; ignored on databases without support.
	conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_post ON votes (user_id, post_id) WHERE post_id IS NOT NULL`)
	conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_comment ON votes (user_id, comment_id) WHERE comment_id IS NOT NULL`)

	return nil
}

func seedCategories() {
	var count int64
	DB.Model(&models.Category{}).Count(&count)
	if count > 0 {
		log.Debug().Msg("Categories already seeded, skipping")
		return
	}

	categories := []models.Category{
		{Name: "Politics", Description: "Political news and analysis"},
		{Name: "Sports", Description: "Match reports and sports coverage"},
		{Name: "Culture", Description: "Books, film, music and the arts"},
		{Name: "Science", Description: "Research news and explainers"},
	}

	for _, category := range categories {
		if err := DB.Create(&category).Error; err != nil {
			log.Warn().Err(err).Str("category", category.Name).Msg("Failed to create category")
		}
	}
	log.Info().Msg("Initial categories created")
}
