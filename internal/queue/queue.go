package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/service"
)

// TopicPlatformEvents carries webhook-delivered platform event batches from
// the HTTP surface to the reconciler.
const TopicPlatformEvents = "platform_events"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process pub/sub with retry, used for same-binary
// dispatch (webhook intake to reconciler). Cross-binary delivery goes over
// AMQP in cmd/worker.
type InMemoryQueue struct {
	mu       sync.Mutex
	log      *zap.Logger
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue.
func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryQueue{
		log:      log,
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries with backoff.
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		q.log.Warn("job failed",
			zap.String("topic", topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err))

		if job.RetryCount > job.MaxRetries {
			q.log.Error("job permanently failed",
				zap.String("topic", topic),
				zap.Int("attempts", job.RetryCount))
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic.
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// SyncJob is one webhook-delivered batch of platform events.
type SyncJob struct {
	CampaignExternalID string                `json:"campaign_external_id"`
	Events             []model.PlatformEvent `json:"events"`
}

// StartPlatformEventSubscriber wires the reconciler to the platform_events
// topic. Per-event failures inside a batch are already partial (the
// reconciler reports them per-touchpoint), so only batch-level errors
// trigger the queue's retry.
func StartPlatformEventSubscriber(q Queue, reconciler *service.Reconciler, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	err := q.Subscribe(TopicPlatformEvents, func(payload any) error {
		job, ok := payload.(SyncJob)
		if !ok {
			log.Warn("invalid payload type on platform_events, expected SyncJob")
			return nil // malformed jobs are dropped, not retried
		}

		result, err := reconciler.Reconcile(context.Background(), job.CampaignExternalID, job.Events)
		if err != nil {
			return err // batch-level failure, retry
		}

		log.Info("platform event batch reconciled",
			zap.String("campaign", job.CampaignExternalID),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", len(result.Failures)))
		return nil
	})
	if err != nil {
		log.Error("failed to subscribe to platform_events", zap.Error(err))
	}
}
