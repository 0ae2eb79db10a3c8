package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// Publisher enqueues inbound events for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueInbound publishes a normalized inbound event. Webhook handlers
// call this so provider requests are acknowledged without waiting on
// the decision engine.
func (p *Publisher) EnqueueInbound(ctx context.Context, event InboundEvent) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(event.ProviderMessageID) == "" {
		return errors.New("conversation: inbound event missing provider message id")
	}
	if strings.TrimSpace(event.ThreadID) == "" {
		return errors.New("conversation: inbound event missing thread id")
	}

	payload, body, err := encodePayload(queuePayload{Event: event})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue inbound event: %w", err)
	}

	p.logger.Debug("inbound event enqueued",
		"job_id", payload.ID,
		"thread_id", event.ThreadID,
		"channel", event.Channel,
	)
	return nil
}
