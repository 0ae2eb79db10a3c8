package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// InboundEvent is one normalized guest message handed to the
// orchestrator, regardless of which provider webhook produced it.
type InboundEvent struct {
	Channel           string `json:"channel"`
	ProviderMessageID string `json:"providerMessageId"`
	From              string `json:"from"`
	To                string `json:"to"`
	Subject           string `json:"subject,omitempty"`
	Body              string `json:"body"`
	ThreadID          string `json:"threadId"`
	StayID            string `json:"stayId,omitempty"`
	PropertyID        string `json:"propertyId,omitempty"`
}

type queuePayload struct {
	ID    string       `json:"id"`
	Event InboundEvent `json:"event"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
