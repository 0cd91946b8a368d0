package services

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// QueuedEvent is one pending delivery to the event processor.
type QueuedEvent struct {
	EventID     uuid.UUID
	EventType   string
	UserID      string
	Metadata    map[string]interface{}
	QueuedAt    time.Time
	RetryCount  int
	NextAttempt time.Time

	backoff *backoff.ExponentialBackOff
}

// EventQueue drives at-least-once delivery of reputation events into the
// processor. Failed deliveries are re-queued with exponential backoff up
// to a retry ceiling; each delivery runs under the job timeout so no
// worker blocks indefinitely.
type EventQueue struct {
	processor  *EventProcessor
	queue      []QueuedEvent
	mu         sync.RWMutex
	stopCh     chan struct{}
	running    bool
	jobTimeout time.Duration
	maxRetries int
}

func NewEventQueue(processor *EventProcessor, jobTimeout time.Duration, maxRetries int) *EventQueue {
	if maxRetries <= 0 {
		maxRetries = 5
	}

	return &EventQueue{
		processor:  processor,
		queue:      make([]QueuedEvent, 0),
		stopCh:     make(chan struct{}),
		jobTimeout: jobTimeout,
		maxRetries: maxRetries,
	}
}

func (q *EventQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	log := gologger.WithComponent("event_queue")
	log.Info().Msg("Starting event queue processor")

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event queue processor stopped due to context cancellation")
			return
		case <-q.stopCh:
			log.Info().Msg("Event queue processor stopped")
			return
		case <-ticker.C:
			q.processQueue(ctx)
		}
	}
}

func (q *EventQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	close(q.stopCh)
	q.running = false
}

// Enqueue adds a delivery. Safe to call from any goroutine.
func (q *EventQueue) Enqueue(eventID uuid.UUID, eventType, userID string, metadata map[string]interface{}) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 2 * time.Minute
	bo.MaxElapsedTime = 0

	now := time.Now()

	q.mu.Lock()
	q.queue = append(q.queue, QueuedEvent{
		EventID:     eventID,
		EventType:   eventType,
		UserID:      userID,
		Metadata:    metadata,
		QueuedAt:    now,
		NextAttempt: now,
		backoff:     bo,
	})
	q.mu.Unlock()

	log := gologger.WithComponent("event_queue")
	log.Debug().
		Str("event_id", eventID.String()).
		Str("event_type", eventType).
		Str("user_id", userID).
		Msg("Event queued")
}

// Len reports the number of pending deliveries.
func (q *EventQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queue)
}

func (q *EventQueue) processQueue(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	var due, pending []QueuedEvent
	for _, item := range q.queue {
		if item.NextAttempt.After(now) {
			pending = append(pending, item)
		} else {
			due = append(due, item)
		}
	}
	q.queue = pending
	q.mu.Unlock()

	for _, item := range due {
		q.deliver(ctx, item)
	}
}

func (q *EventQueue) deliver(ctx context.Context, item QueuedEvent) {
	log := gologger.WithComponent("event_queue")

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	err := q.processor.ProcessEvent(jobCtx, item.EventID, item.EventType, item.UserID, item.Metadata)
	if err == nil {
		return
	}

	item.RetryCount++
	if item.RetryCount > q.maxRetries {
		log.Error().Err(err).
			Str("event_id", item.EventID.String()).
			Str("event_type", item.EventType).
			Str("user_id", item.UserID).
			Int("retries", item.RetryCount-1).
			Msg("Event delivery exhausted retries, dropping")
		return
	}

	item.NextAttempt = time.Now().Add(item.backoff.NextBackOff())

	q.mu.Lock()
	q.queue = append(q.queue, item)
	q.mu.Unlock()

	log.Warn().Err(err).
		Str("event_id", item.EventID.String()).
		Int("retry", item.RetryCount).
		Time("next_attempt", item.NextAttempt).
		Msg("Event delivery failed, re-queued")
}
