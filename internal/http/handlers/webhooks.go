package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hostwise/guestline-ai-platform/internal/conversation"
	"github.com/hostwise/guestline-ai-platform/internal/stays"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// InboundPublisher enqueues a normalized event for async processing.
type InboundPublisher interface {
	EnqueueInbound(ctx context.Context, event conversation.InboundEvent) error
}

// ThreadResolver maps a guest address to the owning conversation thread.
type ThreadResolver interface {
	ResolveThreadByContact(ctx context.Context, channel, address string) (*stays.Bundle, error)
}

// WebhookHandler accepts provider webhooks, normalizes them into
// inbound events, and acknowledges immediately. The decision pipeline
// runs behind the queue.
type WebhookHandler struct {
	publisher InboundPublisher
	threads   ThreadResolver
	logger    *logging.Logger
}

func NewWebhookHandler(publisher InboundPublisher, threads ThreadResolver, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("handlers: publisher cannot be nil")
	}
	if threads == nil {
		panic("handlers: thread resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{publisher: publisher, threads: threads, logger: logger}
}

// HandleSMS accepts a Twilio inbound-message webhook (form encoded).
func (h *WebhookHandler) HandleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	messageSid := strings.TrimSpace(r.PostFormValue("MessageSid"))
	from := strings.TrimSpace(r.PostFormValue("From"))
	to := strings.TrimSpace(r.PostFormValue("To"))
	body := r.PostFormValue("Body")
	if messageSid == "" || from == "" || body == "" {
		h.logger.Error("invalid twilio payload", "message_sid", messageSid, "from", from)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	bundle, err := h.threads.ResolveThreadByContact(r.Context(), "sms", from)
	if errors.Is(err, stays.ErrNotFound) {
		// Unknown senders are acknowledged and dropped so Twilio stops
		// retrying.
		h.logger.Warn("sms from unknown guest dropped", "from", from)
		h.writeTwiML(w)
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve sms thread", "error", err, "from", from)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	event := conversation.InboundEvent{
		Channel:           "sms",
		ProviderMessageID: messageSid,
		From:              from,
		To:                to,
		Body:              body,
		ThreadID:          bundle.Thread.ID.String(),
		StayID:            bundle.Stay.ID.String(),
		PropertyID:        bundle.Property.ID.String(),
	}
	if err := h.publisher.EnqueueInbound(r.Context(), event); err != nil {
		h.logger.Error("failed to enqueue sms event", "error", err, "message_sid", messageSid)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeTwiML(w)
}

type emailWebhookPayload struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
}

// HandleEmail accepts a normalized inbound-email webhook (JSON).
func (h *WebhookHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	var payload emailWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.MessageID == "" || payload.From == "" || payload.Text == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	bundle, err := h.threads.ResolveThreadByContact(r.Context(), "email", payload.From)
	if errors.Is(err, stays.ErrNotFound) {
		h.logger.Warn("email from unknown guest dropped", "from", payload.From)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve email thread", "error", err, "from", payload.From)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	event := conversation.InboundEvent{
		Channel:           "email",
		ProviderMessageID: payload.MessageID,
		From:              payload.From,
		To:                payload.To,
		Subject:           payload.Subject,
		Body:              payload.Text,
		ThreadID:          bundle.Thread.ID.String(),
		StayID:            bundle.Stay.ID.String(),
		PropertyID:        bundle.Property.ID.String(),
	}
	if err := h.publisher.EnqueueInbound(r.Context(), event); err != nil {
		h.logger.Error("failed to enqueue email event", "error", err, "message_id", payload.MessageID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// writeTwiML acknowledges Twilio with an empty response so no
// provider-side reply is generated.
func (h *WebhookHandler) writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}
