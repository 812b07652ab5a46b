package services

import (
	"testing"

	"newsline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	queue, sender := newTestQueue()
	subs := NewSubscriptionService(conn, queue)

	user := createUser(t, conn, "reader@example.com", "reader", "Rhea")
	sports := createCategory(t, conn, "Sports")

	require.NoError(t, subs.Subscribe(user, sports.ID))
	assert.True(t, subs.IsSubscribed(user.ID, sports.ID))

	// Repeated subscribe is a no-op
	require.NoError(t, subs.Subscribe(user, sports.ID))
	var count int64
	conn.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	require.NoError(t, subs.Unsubscribe(user, sports.ID))
	assert.False(t, subs.IsSubscribed(user.ID, sports.ID))

	// Subscriber set is back to its prior state
	conn.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	// Unsubscribing again stays a no-op
	require.NoError(t, subs.Unsubscribe(user, sports.ID))

	queue.Wait()
	messages := sender.messages()
	require.Len(t, messages, 2, "one confirmation per actual change")
	assert.Equal(t, "Sports", messages[0].Subject)
	assert.Contains(t, messages[0].Text, "Rhea")
	assert.Contains(t, messages[1].Text, "unsubscribed")
}

func TestSubscribeUnknownCategory(t *testing.T) {
	conn := setupTestDB(t)
	queue, _ := newTestQueue()
	subs := NewSubscriptionService(conn, queue)

	user := createUser(t, conn, "reader@example.com", "reader", "Rhea")

	assert.ErrorIs(t, subs.Subscribe(user, 42), ErrCategoryNotFound)
	assert.ErrorIs(t, subs.Unsubscribe(user, 42), ErrCategoryNotFound)
}

func TestSubscribeAbsorbsConcurrentDuplicate(t *testing.T) {
	conn := setupTestDB(t)
	queue, sender := newTestQueue()
	subs := NewSubscriptionService(conn, queue)

	sports := createCategory(t, conn, "Sports")
	user := createUser(t, conn, "reader@example.com", "reader", "Rhea")

	// A row created by a racing request hits the unique index, not a read
	require.NoError(t, conn.Create(&models.Subscription{UserID: user.ID, CategoryID: sports.ID}).Error)

	require.NoError(t, subs.Subscribe(user, sports.ID))
	queue.Wait()

	var count int64
	conn.Model(&models.Subscription{}).
		Where("user_id = ? AND category_id = ?", user.ID, sports.ID).
		Count(&count)
	assert.EqualValues(t, 1, count)
	assert.Empty(t, sender.messages(), "no confirmation for a subscription that already existed")
}

func TestSubscribers(t *testing.T) {
	conn := setupTestDB(t)
	queue, _ := newTestQueue()
	subs := NewSubscriptionService(conn, queue)

	sports := createCategory(t, conn, "Sports")
	ann := createUser(t, conn, "ann@example.com", "ann", "Ann")
	bob := createUser(t, conn, "bob@example.com", "bob", "Bob")

	require.NoError(t, subs.Subscribe(ann, sports.ID))
	require.NoError(t, subs.Subscribe(bob, sports.ID))

	users, err := subs.Subscribers(sports.ID)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
