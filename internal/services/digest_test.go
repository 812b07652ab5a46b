package services

import (
	"testing"
	"time"

	"newsline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyDigestWindowAndPersonalization(t *testing.T) {
	conn := setupTestDB(t)
	queue, sender := newTestQueue()
	digest := NewDigestService(conn, queue, "http://localhost:8080")

	sports := createCategory(t, conn, "Sports")
	politics := createCategory(t, conn, "Politics")

	writer := createUser(t, conn, "writer@example.com", "writer", "Wim")
	author := createAuthor(t, conn, writer)

	now := time.Now()
	createPost(t, conn, author, "today match", 0, now, sports)
	createPost(t, conn, author, "midweek derby", 0, now.AddDate(0, 0, -3), sports)
	createPost(t, conn, author, "old election", 0, now.AddDate(0, 0, -6), politics)
	createPost(t, conn, author, "ancient final", 0, now.AddDate(0, 0, -8), sports)

	fan := createUser(t, conn, "fan@example.com", "fan", "Fay")
	wonk := createUser(t, conn, "wonk@example.com", "wonk", "Wes")
	require.NoError(t, conn.Create(&models.Subscription{UserID: fan.ID, CategoryID: sports.ID}).Error)
	require.NoError(t, conn.Create(&models.Subscription{UserID: wonk.ID, CategoryID: politics.ID}).Error)

	require.NoError(t, digest.Run())
	queue.Wait()

	messages := sender.messages()
	require.Len(t, messages, 2)

	byRecipient := map[string]Message{}
	for _, msg := range messages {
		byRecipient[msg.To] = msg
	}

	fanMail, ok := byRecipient["fan@example.com"]
	require.True(t, ok)
	assert.Contains(t, fanMail.Text, "today match")
	assert.Contains(t, fanMail.Text, "midweek derby")
	assert.NotContains(t, fanMail.Text, "ancient final", "posts 8 days old are outside the window")
	assert.NotContains(t, fanMail.Text, "old election", "a Sports subscriber never sees Politics-only posts")

	wonkMail, ok := byRecipient["wonk@example.com"]
	require.True(t, ok)
	assert.Contains(t, wonkMail.Text, "old election", "posts 6 days old are inside the window")
	assert.NotContains(t, wonkMail.Text, "today match")
}

func TestWeeklyDigestRerunDoesNotResend(t *testing.T) {
	conn := setupTestDB(t)
	queue, sender := newTestQueue()
	digest := NewDigestService(conn, queue, "http://localhost:8080")

	sports := createCategory(t, conn, "Sports")
	writer := createUser(t, conn, "writer@example.com", "writer", "Wim")
	author := createAuthor(t, conn, writer)
	createPost(t, conn, author, "weekend game", 0, time.Now(), sports)

	fan := createUser(t, conn, "fan@example.com", "fan", "Fay")
	require.NoError(t, conn.Create(&models.Subscription{UserID: fan.ID, CategoryID: sports.ID}).Error)

	require.NoError(t, digest.Run())
	require.NoError(t, digest.Run())
	queue.Wait()

	assert.Len(t, sender.messages(), 1, "a period is delivered at most once per recipient")

	var logged int64
	conn.Model(&models.DigestLog{}).Count(&logged)
	assert.EqualValues(t, 1, logged)
}

func TestWeeklyDigestNoPosts(t *testing.T) {
	conn := setupTestDB(t)
	queue, sender := newTestQueue()
	digest := NewDigestService(conn, queue, "http://localhost:8080")

	sports := createCategory(t, conn, "Sports")
	fan := createUser(t, conn, "fan@example.com", "fan", "Fay")
	require.NoError(t, conn.Create(&models.Subscription{UserID: fan.ID, CategoryID: sports.ID}).Error)

	require.NoError(t, digest.Run())
	queue.Wait()
	assert.Empty(t, sender.messages())
}
