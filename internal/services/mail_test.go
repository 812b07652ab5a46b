package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMultipartPlainOnly(t *testing.T) {
	body, err := buildMultipart(Message{Text: "hello there"})
	require.NoError(t, err)
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(body, "hello there"))
	assert.NotContains(t, body, "multipart/alternative")
}

func TestBuildMultipartAlternative(t *testing.T) {
	body, err := buildMultipart(Message{Text: "plain body", HTML: "<p>rich body</p>"})
	require.NoError(t, err)
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "<p>rich body</p>")
	// Plain part precedes the HTML part so old clients pick the right one
	assert.Less(t, strings.Index(body, "plain body"), strings.Index(body, "rich body"))
}

func TestMailQueueRetriesTransientFailures(t *testing.T) {
	queue, sender := newTestQueue()
	sender.failures = 2

	queue.Enqueue("k1", Message{To: "a@example.com", Subject: "s", Text: "t"})
	queue.Wait()

	messages := sender.messages()
	require.Len(t, messages, 1, "delivery succeeds on the third attempt")
	assert.Equal(t, "a@example.com", messages[0].To)
}

func TestMailQueueDedupWhilePending(t *testing.T) {
	queue, sender := newTestQueue()
	sender.block = make(chan struct{})

	queue.Enqueue("same-key", Message{To: "a@example.com", Subject: "first", Text: "t"})
	queue.Enqueue("same-key", Message{To: "a@example.com", Subject: "duplicate", Text: "t"})
	close(sender.block)
	queue.Wait()

	messages := sender.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Subject)
}

func TestMailQueueIsolatesRecipients(t *testing.T) {
	queue, sender := newTestQueue()
	sender.failAddress = "broken@example.com"

	queue.Enqueue("k1", Message{To: "broken@example.com", Subject: "s", Text: "t"})
	queue.Enqueue("k2", Message{To: "fine@example.com", Subject: "s", Text: "t"})
	queue.Wait()

	messages := sender.messages()
	require.Len(t, messages, 1, "a permanently failing recipient does not block others")
	assert.Equal(t, "fine@example.com", messages[0].To)
}
