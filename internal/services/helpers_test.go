package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"newsline/internal/db"
	"newsline/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database and migrates the schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrate(conn))
	return conn
}

// fakeSender records sent messages. It can fail the first N sends, fail
// one address permanently, or hold every send until block is closed.
type fakeSender struct {
	mu          sync.Mutex
	sent        []Message
	failures    int
	failAddress string
	block       chan struct{}
}

func (f *fakeSender) Send(msg Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.To == f.failAddress {
		return fmt.Errorf("mailbox rejected")
	}
	if f.failures > 0 {
		f.failures--
		return fmt.Errorf("transport unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sent))
	copy(out, f.sent)
	return out
}

// newTestQueue builds a mail queue over a fake sender with fast retries.
func newTestQueue() (*MailQueue, *fakeSender) {
	sender := &fakeSender{}
	q := NewMailQueue(sender)
	q.retryDelay = time.Millisecond
	return q, sender
}

func createUser(t *testing.T, conn *gorm.DB, email, username, firstName string) *models.User {
	t.Helper()
	user := &models.User{
		Email:     email,
		Username:  username,
		FirstName: firstName,
		LastName:  "Tester",
		Password:  "x",
		Role:      models.RoleReader,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func createAuthor(t *testing.T, conn *gorm.DB, user *models.User) *models.Author {
	t.Helper()
	author := &models.Author{UserID: user.ID}
	require.NoError(t, conn.Create(author).Error)
	return author
}

func createCategory(t *testing.T, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, conn.Create(category).Error)
	return category
}

func createPost(t *testing.T, conn *gorm.DB, author *models.Author, title string, rating int, createdAt time.Time, categories ...*models.Category) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:  author.ID,
		Kind:      models.PostKindArticle,
		Title:     title,
		Slug:      fmt.Sprintf("%s-%d", title, time.Now().UnixNano()),
		Body:      "body of " + title,
		Rating:    rating,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(post).Error)
	for _, category := range categories {
		require.NoError(t, conn.Create(&models.PostCategory{PostID: post.ID, CategoryID: category.ID}).Error)
	}
	return post
}
