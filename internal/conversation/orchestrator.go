package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/actor"
	"github.com/hostwise/guestline-ai-platform/internal/assistant"
	"github.com/hostwise/guestline-ai-platform/internal/messaging"
	"github.com/hostwise/guestline-ai-platform/internal/notify"
	"github.com/hostwise/guestline-ai-platform/internal/observability/metrics"
	"github.com/hostwise/guestline-ai-platform/internal/stays"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// Outcome describes what ingest did with an inbound event.
type Outcome string

const (
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeEscalated   Outcome = "escalated"
	OutcomeAutoReplied Outcome = "auto_replied"
	OutcomeLogged      Outcome = "logged"
)

// Escalation trigger labels, also used as the metric dimension.
const (
	triggerNeedsHuman    = "needs_human"
	triggerLowConfidence = "low_confidence"
	triggerIntent        = "intent"
	triggerSendFailed    = "send_failed"
)

type eventLog interface {
	InsertIfAbsent(ctx context.Context, rec EventRecord) (bool, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]EventRecord, error)
}

type draftLog interface {
	Insert(ctx context.Context, threadID uuid.UUID, decision Decision) (Draft, error)
	Latest(ctx context.Context, threadID uuid.UUID) (Draft, error)
}

type threadStore interface {
	GetThreadBundle(ctx context.Context, threadID uuid.UUID) (*stays.Bundle, error)
	UpdateThreadStatus(ctx context.Context, threadID uuid.UUID, status string) error
	TouchThread(ctx context.Context, threadID uuid.UUID, channel string, at time.Time) error
}

type configSource interface {
	Get(ctx context.Context) (assistant.Snapshot, error)
}

type messageLog interface {
	InsertMessage(ctx context.Context, rec messaging.MessageRecord) (uuid.UUID, error)
}

type escalationSink interface {
	Enqueue(esc notify.Escalation) error
}

// Orchestrator drives one conversation thread at a time. All ingest
// work for a thread runs on that thread's actor, so event dedup,
// context assembly, and status transitions never race.
type Orchestrator struct {
	actors  *actor.Registry
	events  eventLog
	drafts  draftLog
	threads threadStore
	configs configSource
	llm     LLMClient
	sender  messaging.Sender
	logger  *logging.Logger

	messages    messageLog
	transcript  *TranscriptStore
	escalations escalationSink
	metrics     *metrics.ConversationMetrics

	provider    string
	model       string
	maxTokens   int32
	temperature float32
}

// OrchestratorOption customizes optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithMessageLog mirrors events into the provider message log.
func WithMessageLog(log messageLog) OrchestratorOption {
	return func(o *Orchestrator) { o.messages = log }
}

// WithTranscriptStore mirrors events into the Redis transcript.
func WithTranscriptStore(store *TranscriptStore) OrchestratorOption {
	return func(o *Orchestrator) { o.transcript = store }
}

// WithEscalationSink routes operator alerts to the notify worker.
func WithEscalationSink(sink escalationSink) OrchestratorOption {
	return func(o *Orchestrator) { o.escalations = sink }
}

// WithConversationMetrics records ingest and decision metrics.
func WithConversationMetrics(m *metrics.ConversationMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithDecisionModel sets the provider label and model id passed to the
// decision engine.
func WithDecisionModel(provider, model string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.provider = provider
		o.model = model
	}
}

// NewOrchestrator wires the conversation pipeline. The required
// collaborators cover persistence, configuration, the decision engine,
// and outbound dispatch; everything else is optional.
func NewOrchestrator(
	actors *actor.Registry,
	events eventLog,
	drafts draftLog,
	threads threadStore,
	configs configSource,
	llm LLMClient,
	sender messaging.Sender,
	logger *logging.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if actors == nil {
		panic("conversation: actor registry cannot be nil")
	}
	if events == nil || drafts == nil || threads == nil || configs == nil {
		panic("conversation: stores cannot be nil")
	}
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	o := &Orchestrator{
		actors:      actors,
		events:      events,
		drafts:      drafts,
		threads:     threads,
		configs:     configs,
		llm:         llm,
		sender:      sender,
		logger:      logger,
		provider:    "bedrock",
		maxTokens:   1024,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest processes one inbound event on the owning thread's actor and
// returns what was done with it. At-least-once delivery is expected;
// replays short-circuit as OutcomeDuplicate.
func (o *Orchestrator) Ingest(ctx context.Context, event InboundEvent) (Outcome, error) {
	if strings.TrimSpace(event.ProviderMessageID) == "" {
		return "", errors.New("conversation: inbound event missing provider message id")
	}
	threadID, err := uuid.Parse(event.ThreadID)
	if err != nil {
		return "", fmt.Errorf("conversation: invalid thread id %q: %w", event.ThreadID, err)
	}

	var outcome Outcome
	err = o.actors.Do(ctx, threadID.String(), func(ctx context.Context) error {
		var procErr error
		outcome, procErr = o.process(ctx, threadID, event)
		return procErr
	})
	if err != nil {
		return "", err
	}

	o.metrics.ObserveIngest(event.Channel, string(outcome))
	return outcome, nil
}

// LatestSuggestion returns the most recent draft for a thread, or
// ErrNoDraft. Reads are safe off the actor because drafts are
// append-only.
func (o *Orchestrator) LatestSuggestion(ctx context.Context, threadID uuid.UUID) (Draft, error) {
	return o.drafts.Latest(ctx, threadID)
}

// process runs the full pipeline for one first-delivery event. It is
// only ever invoked on the thread's actor goroutine.
func (o *Orchestrator) process(ctx context.Context, threadID uuid.UUID, event InboundEvent) (Outcome, error) {
	bundle, err := o.threads.GetThreadBundle(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("conversation: load thread %s: %w", threadID, err)
	}

	receivedAt := time.Now().UTC()
	inserted, err := o.events.InsertIfAbsent(ctx, EventRecord{
		ThreadID:          threadID,
		EventType:         EventTypeInbound,
		Channel:           event.Channel,
		ProviderMessageID: event.ProviderMessageID,
		FromAddr:          event.From,
		ToAddr:            event.To,
		Subject:           event.Subject,
		Body:              event.Body,
		ReceivedAt:        receivedAt,
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		o.logger.Debug("duplicate inbound event", "thread_id", threadID, "provider_message_id", event.ProviderMessageID)
		return OutcomeDuplicate, nil
	}

	o.mirrorInbound(ctx, threadID, event, receivedAt)

	history, err := o.events.ListByThread(ctx, threadID)
	if err != nil {
		return "", err
	}

	snap, err := o.configs.Get(ctx)
	if err != nil {
		o.logger.Error("config snapshot unavailable, using defaults", "error", err)
		snap = assistant.Snapshot{Settings: assistant.DefaultSettings()}
	}

	decision := o.decide(ctx, snap, bundle, event, history)
	decision = interpolateDecision(decision, bundle)

	draft, err := o.drafts.Insert(ctx, threadID, decision)
	if err != nil {
		return "", err
	}

	if trigger := escalationTrigger(decision, snap.Settings); trigger != "" {
		o.escalate(ctx, threadID, bundle, event, decision, trigger)
		return OutcomeEscalated, nil
	}

	// Closed threads keep their dedup and draft behavior but never
	// trigger outbound sends.
	if bundle.Thread != nil && bundle.Thread.Status == stays.ThreadStatusClosed {
		o.logger.Info("thread closed, reply suppressed", "thread_id", threadID, "draft_id", draft.ID)
		return OutcomeLogged, nil
	}

	if decision.AutoReplyOK && snap.Settings.AutoReplyEnabled {
		return o.autoReply(ctx, threadID, bundle, event, decision)
	}

	return OutcomeLogged, nil
}

// decide calls the decision engine and maps every failure mode onto the
// fallback decision so the pipeline always has a well-formed payload.
func (o *Orchestrator) decide(ctx context.Context, snap assistant.Snapshot, bundle *stays.Bundle, event InboundEvent, history []EventRecord) Decision {
	req := LLMRequest{
		Model:       o.model,
		System:      composeSystemPrompt(snap.Prompt, bundle, event.Channel),
		Messages:    historyToMessages(history),
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}

	started := time.Now()
	resp, err := o.llm.Complete(ctx, req)
	if err != nil {
		o.metrics.ObserveDecisionLatency(o.provider, "error", time.Since(started).Seconds())
		o.logger.Error("decision engine call failed", "error", err, "thread_id", event.ThreadID)
		return FallbackDecision(err.Error())
	}

	decision, err := ParseDecision(resp.Text)
	if err != nil {
		o.metrics.ObserveDecisionLatency(o.provider, "invalid", time.Since(started).Seconds())
		o.logger.Error("decision engine returned invalid payload", "error", err, "thread_id", event.ThreadID)
		return FallbackDecision(err.Error())
	}

	o.metrics.ObserveDecisionLatency(o.provider, "ok", time.Since(started).Seconds())
	return decision
}

// escalate marks the thread for a human and fires the operator alert.
// Alert delivery is best-effort; a full notify queue only logs.
func (o *Orchestrator) escalate(ctx context.Context, threadID uuid.UUID, bundle *stays.Bundle, event InboundEvent, decision Decision, trigger string) {
	if bundle.Thread == nil || bundle.Thread.Status != stays.ThreadStatusClosed {
		if err := o.threads.UpdateThreadStatus(ctx, threadID, stays.ThreadStatusNeedsHuman); err != nil {
			o.logger.Error("failed to mark thread needs_human", "error", err, "thread_id", threadID)
		}
	}

	o.metrics.ObserveEscalation(trigger)

	if o.escalations == nil {
		return
	}
	esc := notify.Escalation{
		ThreadID:       threadID.String(),
		GuestName:      bundle.Stay.GuestName,
		GuestContact:   guestContact(bundle, event.Channel),
		PropertyName:   bundle.Property.Name,
		CheckinAt:      bundle.Stay.CheckinAt,
		CheckoutAt:     bundle.Stay.CheckoutAt,
		LastMessage:    event.Body,
		Intent:         decision.Intent,
		Confidence:     decision.Confidence,
		SuggestedReply: decision.ReplyText,
		Reason:         trigger,
	}
	if err := o.escalations.Enqueue(esc); err != nil {
		o.logger.Error("escalation alert dropped", "error", err, "thread_id", threadID)
	}
}

// autoReply dispatches the drafted reply. Any dispatch failure,
// including a missing contact method, forces the thread to a human
// instead of silently dropping the reply.
func (o *Orchestrator) autoReply(ctx context.Context, threadID uuid.UUID, bundle *stays.Bundle, event InboundEvent, decision Decision) (Outcome, error) {
	recipient := guestContact(bundle, decision.ReplyChannel)
	if recipient == "" {
		o.logger.Warn("no contact method for reply channel", "thread_id", threadID, "channel", decision.ReplyChannel)
		o.escalate(ctx, threadID, bundle, event, decision, triggerSendFailed)
		return OutcomeEscalated, nil
	}

	msg := messaging.OutboundMessage{
		Channel:  messaging.Channel(decision.ReplyChannel),
		To:       recipient,
		Body:     decision.ReplyText,
		ThreadID: threadID.String(),
	}
	if decision.ReplySubject != nil {
		msg.Subject = *decision.ReplySubject
	}

	providerMessageID, err := o.sendOutbound(ctx, msg)
	if err != nil {
		o.logger.Error("auto-reply dispatch failed", "error", err, "thread_id", threadID, "channel", decision.ReplyChannel)
		o.escalate(ctx, threadID, bundle, event, decision, triggerSendFailed)
		return OutcomeEscalated, nil
	}

	sentAt := time.Now().UTC()
	if _, err := o.events.InsertIfAbsent(ctx, EventRecord{
		ThreadID:          threadID,
		EventType:         EventTypeOutbound,
		Channel:           decision.ReplyChannel,
		ProviderMessageID: providerMessageID,
		ToAddr:            recipient,
		Subject:           msg.Subject,
		Body:              decision.ReplyText,
		ReceivedAt:        sentAt,
	}); err != nil {
		o.logger.Error("failed to log outbound event", "error", err, "thread_id", threadID)
	}
	o.mirrorOutbound(ctx, threadID, msg, providerMessageID, sentAt)

	if err := o.threads.TouchThread(ctx, threadID, decision.ReplyChannel, sentAt); err != nil {
		o.logger.Error("failed to touch thread", "error", err, "thread_id", threadID)
	}

	o.logger.Info("auto-reply sent",
		"thread_id", threadID,
		"channel", decision.ReplyChannel,
		"intent", decision.Intent,
		"confidence", decision.Confidence,
	)
	return OutcomeAutoReplied, nil
}

func (o *Orchestrator) sendOutbound(ctx context.Context, msg messaging.OutboundMessage) (string, error) {
	if o.sender == nil {
		return "", messaging.ErrChannelUnavailable
	}
	return o.sender.Send(ctx, msg)
}

// mirrorInbound writes best-effort copies of an inbound event to the
// message log, thread metadata, and transcript.
func (o *Orchestrator) mirrorInbound(ctx context.Context, threadID uuid.UUID, event InboundEvent, receivedAt time.Time) {
	if o.messages != nil {
		if _, err := o.messages.InsertMessage(ctx, messaging.MessageRecord{
			ThreadID:          threadID,
			Direction:         "inbound",
			Channel:           event.Channel,
			FromAddr:          event.From,
			ToAddr:            event.To,
			Subject:           event.Subject,
			Body:              event.Body,
			ProviderMessageID: event.ProviderMessageID,
			Status:            "received",
		}); err != nil {
			o.logger.Error("failed to log inbound message", "error", err, "thread_id", threadID)
		}
	}

	if err := o.threads.TouchThread(ctx, threadID, event.Channel, receivedAt); err != nil {
		o.logger.Error("failed to touch thread", "error", err, "thread_id", threadID)
	}

	if err := o.transcript.Append(ctx, threadID.String(), TranscriptMessage{
		Role:              ChatRoleUser,
		Channel:           event.Channel,
		From:              event.From,
		To:                event.To,
		Body:              event.Body,
		Timestamp:         receivedAt,
		ProviderMessageID: event.ProviderMessageID,
	}); err != nil {
		o.logger.Error("failed to append inbound transcript", "error", err, "thread_id", threadID)
	}
}

func (o *Orchestrator) mirrorOutbound(ctx context.Context, threadID uuid.UUID, msg messaging.OutboundMessage, providerMessageID string, sentAt time.Time) {
	if o.messages != nil {
		if _, err := o.messages.InsertMessage(ctx, messaging.MessageRecord{
			ThreadID:          threadID,
			Direction:         "outbound",
			Channel:           string(msg.Channel),
			ToAddr:            msg.To,
			Subject:           msg.Subject,
			Body:              msg.Body,
			ProviderMessageID: providerMessageID,
			Status:            "sent",
		}); err != nil {
			o.logger.Error("failed to log outbound message", "error", err, "thread_id", threadID)
		}
	}

	if err := o.transcript.Append(ctx, threadID.String(), TranscriptMessage{
		Role:              ChatRoleAssistant,
		Channel:           string(msg.Channel),
		To:                msg.To,
		Body:              msg.Body,
		Timestamp:         sentAt,
		ProviderMessageID: providerMessageID,
	}); err != nil {
		o.logger.Error("failed to append outbound transcript", "error", err, "thread_id", threadID)
	}
}

// escalationTrigger returns the first matching escalation criterion, or
// "" when the decision does not escalate.
func escalationTrigger(d Decision, settings assistant.Settings) string {
	switch {
	case d.NeedsHuman:
		return triggerNeedsHuman
	case d.Confidence < settings.ConfidenceThreshold:
		return triggerLowConfidence
	case settings.EscalatesIntent(d.Intent):
		return triggerIntent
	}
	return ""
}

// historyToMessages maps the event log onto chat roles: inbound rows
// become user turns, outbound rows assistant turns.
func historyToMessages(history []EventRecord) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history))
	for _, rec := range history {
		role := ChatRoleUser
		if rec.EventType == EventTypeOutbound {
			role = ChatRoleAssistant
		}
		content := rec.Body
		if rec.Subject != "" {
			content = "Subject: " + rec.Subject + "\n" + content
		}
		messages = append(messages, ChatMessage{Role: role, Content: content})
	}
	return messages
}

// guestContact picks the guest's address for a channel.
func guestContact(bundle *stays.Bundle, channel string) string {
	if bundle == nil {
		return ""
	}
	switch channel {
	case string(messaging.ChannelSMS):
		return bundle.Stay.GuestPhoneE164
	case string(messaging.ChannelEmail):
		return bundle.Stay.GuestEmail
	}
	return ""
}
