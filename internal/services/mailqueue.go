package services

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MailQueue decouples email fan-out from request handling. Jobs carry a
// dedup key so the same logical notification is never queued twice while
// still pending, each job is retried on its own, and one recipient's
// transport failure never aborts the rest of a fan-out.
type MailQueue struct {
	sender     Sender
	queue      chan mailJob
	pending    map[string]bool
	mu         sync.Mutex
	inflight   sync.WaitGroup
	maxRetries int
	retryDelay time.Duration
}

type mailJob struct {
	dedupKey string
	msg      Message
}

var (
	mailQueue     *MailQueue
	mailQueueOnce sync.Once
)

// GetMailQueue returns the singleton queue backed by the SMTP mail service.
func GetMailQueue() *MailQueue {
	mailQueueOnce.Do(func() {
		mailQueue = NewMailQueue(NewMailService())
	})
	return mailQueue
}

// NewMailQueue builds a queue over the given sender and starts its worker.
func NewMailQueue(sender Sender) *MailQueue {
	q := &MailQueue{
		sender:     sender,
		queue:      make(chan mailJob, 1000), // buffered, don't block request handlers
		pending:    make(map[string]bool),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	go q.worker()
	return q
}

// Enqueue schedules one message. The dedup key identifies the logical
// delivery (e.g. "post:12:cat:3:reader@example.com"); a key already
// waiting in the queue is skipped.
func (q *MailQueue) Enqueue(dedupKey string, msg Message) {
	q.mu.Lock()
	if q.pending[dedupKey] {
		q.mu.Unlock()
		return
	}
	q.pending[dedupKey] = true
	q.mu.Unlock()

	q.inflight.Add(1)
	select {
	case q.queue <- mailJob{dedupKey: dedupKey, msg: msg}:
	default:
		// Queue full: drop the pending mark so a later enqueue can retry
		q.mu.Lock()
		delete(q.pending, dedupKey)
		q.mu.Unlock()
		q.inflight.Done()
		log.Error().Str("key", dedupKey).Msg("Mail queue full, dropping message")
	}
}

// Wait blocks until every queued message has been processed. Used on
// shutdown and in tests.
func (q *MailQueue) Wait() {
	q.inflight.Wait()
}

func (q *MailQueue) worker() {
	for job := range q.queue {
		q.deliver(job)

		q.mu.Lock()
		delete(q.pending, job.dedupKey)
		q.mu.Unlock()
		q.inflight.Done()
	}
}

// deliver attempts the send with exponential backoff between retries.
func (q *MailQueue) deliver(job mailJob) {
	delay := q.retryDelay
	for attempt := 1; ; attempt++ {
		err := q.sender.Send(job.msg)
		if err == nil {
			log.Info().Str("to", job.msg.To).Str("subject", job.msg.Subject).Msg("Email sent")
			return
		}
		if attempt >= q.maxRetries {
			log.Error().Err(err).Str("to", job.msg.To).Int("attempts", attempt).Msg("Giving up on email")
			return
		}
		log.Warn().Err(err).Str("to", job.msg.To).Int("attempt", attempt).Msg("Email send failed, retrying")
		time.Sleep(delay)
		delay *= 2
	}
}
