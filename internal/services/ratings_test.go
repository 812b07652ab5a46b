package services

import (
	"testing"
	"time"

	"newsline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeAuthorRating(t *testing.T) {
	conn := setupTestDB(t)

	user := createUser(t, conn, "ann@example.com", "ann", "Ann")
	author := createAuthor(t, conn, user)

	createPost(t, conn, author, "first", 2, time.Now())
	createPost(t, conn, author, "second", 3, time.Now())

	require.NoError(t, conn.Create(&models.Comment{
		PostID: 1, UserID: user.ID, Body: "nice", Rating: 4,
	}).Error)
	require.NoError(t, conn.Create(&models.Comment{
		PostID: 1, UserID: user.ID, Body: "thanks", Rating: -1,
	}).Error)

	rating, err := RecomputeAuthorRating(conn, author.ID)
	require.NoError(t, err)
	// 3*(2+3) + (4-1)
	assert.Equal(t, 18, rating)

	var persisted models.Author
	require.NoError(t, conn.First(&persisted, author.ID).Error)
	assert.Equal(t, 18, persisted.Rating)
}

func TestRecomputeAuthorRatingEmpty(t *testing.T) {
	conn := setupTestDB(t)

	user := createUser(t, conn, "bea@example.com", "bea", "Bea")
	author := createAuthor(t, conn, user)

	rating, err := RecomputeAuthorRating(conn, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating, "missing aggregates count as zero, not an error")
}

func TestRecomputeAuthorRatingIgnoresOthers(t *testing.T) {
	conn := setupTestDB(t)

	ann := createUser(t, conn, "ann@example.com", "ann", "Ann")
	annAuthor := createAuthor(t, conn, ann)
	bob := createUser(t, conn, "bob@example.com", "bob", "Bob")
	bobAuthor := createAuthor(t, conn, bob)

	annPost := createPost(t, conn, annAuthor, "anns post", 5, time.Now())
	createPost(t, conn, bobAuthor, "bobs post", 7, time.Now())

	// Bob's comment counts for Bob, not for Ann
	require.NoError(t, conn.Create(&models.Comment{
		PostID: annPost.ID, UserID: bob.ID, Body: "hm", Rating: 2,
	}).Error)

	rating, err := RecomputeAuthorRating(conn, annAuthor.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, rating)

	rating, err = RecomputeAuthorRating(conn, bobAuthor.ID)
	require.NoError(t, err)
	assert.Equal(t, 23, rating)
}

func TestRecomputeAuthorRatingUnknownAuthor(t *testing.T) {
	conn := setupTestDB(t)

	_, err := RecomputeAuthorRating(conn, 999)
	require.Error(t, err)
}

func TestBestAuthor(t *testing.T) {
	conn := setupTestDB(t)

	ann := createUser(t, conn, "ann@example.com", "ann", "Ann")
	annAuthor := createAuthor(t, conn, ann)
	bob := createUser(t, conn, "bob@example.com", "bob", "Bob")
	bobAuthor := createAuthor(t, conn, bob)

	require.NoError(t, conn.Model(annAuthor).UpdateColumn("rating", 10).Error)
	require.NoError(t, conn.Model(bobAuthor).UpdateColumn("rating", 25).Error)

	best, err := BestAuthor(conn)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, best.UserID)
}
