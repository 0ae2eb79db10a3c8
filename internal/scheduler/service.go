package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/actor"
	"github.com/hostwise/guestline-ai-platform/internal/assistant"
	"github.com/hostwise/guestline-ai-platform/internal/conversation"
	"github.com/hostwise/guestline-ai-platform/internal/messaging"
	"github.com/hostwise/guestline-ai-platform/internal/observability/metrics"
	"github.com/hostwise/guestline-ai-platform/internal/stays"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// Result reports the outcome of a scheduler control operation.
type Result string

const (
	ResultOK       Result = "ok"
	ResultNotFound Result = "not_found"
)

type jobStore interface {
	InsertIfAbsent(ctx context.Context, job Job) (bool, error)
	ListDue(ctx context.Context, propertyID uuid.UUID, now time.Time, limit int) ([]Job, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, sendAt time.Time) error
	CancelForStay(ctx context.Context, stayID uuid.UUID) (int64, error)
	MinPendingSendAt(ctx context.Context, propertyID uuid.UUID) (*time.Time, error)
	PropertiesWithQueuedJobs(ctx context.Context) ([]uuid.UUID, error)
}

type stayStore interface {
	GetStayBundle(ctx context.Context, stayID uuid.UUID) (*stays.Bundle, error)
	GetPropertySettings(ctx context.Context, propertyID uuid.UUID) (stays.PropertySettings, error)
}

type configSource interface {
	Get(ctx context.Context) (assistant.Snapshot, error)
}

// Service owns reminder scheduling. Every mutation for a property runs
// on that property's actor, and each property holds at most one wake
// timer, always armed to its minimum pending send time.
type Service struct {
	actors  *actor.Registry
	jobs    jobStore
	stays   stayStore
	configs configSource
	sender  messaging.Sender
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics

	batchSize    int
	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	closed bool
}

// ServiceOption customizes scheduler behavior.
type ServiceOption func(*Service)

func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithRetryBackoff(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// WithSchedulerMetrics records job lifecycle metrics.
func WithSchedulerMetrics(m *metrics.SchedulerMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the reminder scheduler.
func NewService(
	actors *actor.Registry,
	jobs jobStore,
	stayData stayStore,
	configs configSource,
	sender messaging.Sender,
	logger *logging.Logger,
	opts ...ServiceOption,
) *Service {
	if actors == nil {
		panic("scheduler: actor registry cannot be nil")
	}
	if jobs == nil || stayData == nil || configs == nil {
		panic("scheduler: stores cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Service{
		actors:       actors,
		jobs:         jobs,
		stays:        stayData,
		configs:      configs,
		sender:       sender,
		logger:       logger,
		batchSize:    10,
		maxAttempts:  3,
		retryBackoff: 5 * time.Minute,
		now:          func() time.Time { return time.Now().UTC() },
		timers:       make(map[uuid.UUID]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops all outstanding wake timers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// ScheduleForStay computes and inserts the stay's reminder jobs.
// Re-running it for an unchanged stay is a no-op thanks to the
// idempotency key.
func (s *Service) ScheduleForStay(ctx context.Context, stayID uuid.UUID) (Result, error) {
	bundle, err := s.stays.GetStayBundle(ctx, stayID)
	if errors.Is(err, stays.ErrNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("scheduler: load stay %s: %w", stayID, err)
	}

	err = s.actors.Do(ctx, bundle.Property.ID.String(), func(ctx context.Context) error {
		return s.scheduleLocked(ctx, bundle)
	})
	if err != nil {
		return "", err
	}
	return ResultOK, nil
}

// RescheduleForStay cancels the stay's queued jobs and recomputes the
// schedule from current stay dates.
func (s *Service) RescheduleForStay(ctx context.Context, stayID uuid.UUID) (Result, error) {
	bundle, err := s.stays.GetStayBundle(ctx, stayID)
	if errors.Is(err, stays.ErrNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("scheduler: load stay %s: %w", stayID, err)
	}

	err = s.actors.Do(ctx, bundle.Property.ID.String(), func(ctx context.Context) error {
		if _, err := s.jobs.CancelForStay(ctx, stayID); err != nil {
			return err
		}
		return s.scheduleLocked(ctx, bundle)
	})
	if err != nil {
		return "", err
	}
	return ResultOK, nil
}

// CancelForStay marks all of the stay's queued jobs cancelled.
func (s *Service) CancelForStay(ctx context.Context, stayID uuid.UUID) (Result, error) {
	bundle, err := s.stays.GetStayBundle(ctx, stayID)
	if errors.Is(err, stays.ErrNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("scheduler: load stay %s: %w", stayID, err)
	}

	err = s.actors.Do(ctx, bundle.Property.ID.String(), func(ctx context.Context) error {
		cancelled, err := s.jobs.CancelForStay(ctx, stayID)
		if err != nil {
			return err
		}
		s.logger.Info("reminders cancelled", "stay_id", stayID, "jobs", cancelled)
		s.rearm(ctx, bundle.Property.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return ResultOK, nil
}

// Wake runs the due-job pass for a property on its actor. Timer fires
// and the reconciliation sweep both land here; duplicate wakes are
// harmless because only currently-queued, currently-due rows are acted
// on.
func (s *Service) Wake(propertyID uuid.UUID) {
	err := s.actors.Submit(propertyID.String(), func(ctx context.Context) error {
		s.processDueJobs(ctx, propertyID)
		return nil
	})
	if err != nil {
		s.logger.Error("scheduler wake dropped", "error", err, "property_id", propertyID)
	}
}

// scheduleLocked runs on the property actor. It inserts one job per
// rule and active channel, skipping instants already in the past.
func (s *Service) scheduleLocked(ctx context.Context, bundle *stays.Bundle) error {
	settings, err := s.stays.GetPropertySettings(ctx, bundle.Property.ID)
	if err != nil {
		return fmt.Errorf("scheduler: load settings for property %s: %w", bundle.Property.ID, err)
	}
	settings = settings.ApplyDefaults()

	channels := activeChannels(settings, bundle.Stay)
	if len(channels) == 0 {
		s.logger.Warn("no active reminder channels", "stay_id", bundle.Stay.ID, "property_id", bundle.Property.ID)
	}

	now := s.now()
	var threadID *uuid.UUID
	if bundle.Thread != nil {
		id := bundle.Thread.ID
		threadID = &id
	}

	for _, rule := range Rules() {
		sendAt, err := SendAt(bundle.Stay.CheckinAt, rule.OffsetDays, rule.TimeOfDay(settings), settings.Timezone)
		if err != nil {
			return err
		}
		if !sendAt.After(now) {
			continue
		}

		for _, channel := range channels {
			inserted, err := s.jobs.InsertIfAbsent(ctx, Job{
				PropertyID:  bundle.Property.ID,
				StayID:      bundle.Stay.ID,
				ThreadID:    threadID,
				Channel:     channel,
				RuleKey:     rule.Key,
				TemplateKey: TemplateKey(rule.Key, channel),
				SendAt:      sendAt,
			})
			if err != nil {
				return err
			}
			if inserted {
				s.metrics.ObserveScheduled(rule.Key, channel)
				s.logger.Info("reminder scheduled",
					"stay_id", bundle.Stay.ID,
					"rule", rule.Key,
					"channel", channel,
					"send_at", sendAt,
				)
			}
		}
	}

	s.rearm(ctx, bundle.Property.ID)
	return nil
}

// processDueJobs drains one batch of due jobs for a property, then
// re-arms the timer to whatever remains.
func (s *Service) processDueJobs(ctx context.Context, propertyID uuid.UUID) {
	due, err := s.jobs.ListDue(ctx, propertyID, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("failed to list due jobs", "error", err, "property_id", propertyID)
		s.rearm(ctx, propertyID)
		return
	}

	for _, job := range due {
		s.dispatchJob(ctx, job)
	}

	s.rearm(ctx, propertyID)
}

func (s *Service) dispatchJob(ctx context.Context, job Job) {
	if err := s.trySend(ctx, job); err != nil {
		s.logger.Error("reminder dispatch failed",
			"error", err,
			"job_id", job.ID,
			"rule", job.RuleKey,
			"channel", job.Channel,
			"attempt", job.Attempts+1,
		)
		if job.Attempts+1 >= s.maxAttempts {
			if err := s.jobs.MarkFailed(ctx, job.ID); err != nil {
				s.logger.Error("failed to mark job failed", "error", err, "job_id", job.ID)
				return
			}
			s.metrics.ObserveProcessed(JobStatusFailed)
			return
		}
		if err := s.jobs.Reschedule(ctx, job.ID, s.now().Add(s.retryBackoff)); err != nil {
			s.logger.Error("failed to reschedule job", "error", err, "job_id", job.ID)
			return
		}
		s.metrics.ObserveProcessed("retried")
		return
	}

	if err := s.jobs.MarkSent(ctx, job.ID); err != nil {
		s.logger.Error("failed to mark job sent", "error", err, "job_id", job.ID)
		return
	}
	s.metrics.ObserveProcessed(JobStatusSent)
	s.logger.Info("reminder sent", "job_id", job.ID, "rule", job.RuleKey, "channel", job.Channel)
}

// trySend renders the job's template against current stay data and
// dispatches it once. A missing contact method or template is a
// dispatch failure like any vendor error.
func (s *Service) trySend(ctx context.Context, job Job) error {
	bundle, err := s.stays.GetStayBundle(ctx, job.StayID)
	if err != nil {
		return fmt.Errorf("scheduler: load stay %s: %w", job.StayID, err)
	}

	snap, err := s.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: load templates: %w", err)
	}
	template, ok := snap.Templates[job.TemplateKey]
	if !ok {
		return fmt.Errorf("scheduler: template %q not configured", job.TemplateKey)
	}

	recipient := recipientFor(bundle.Stay, job.Channel)
	if recipient == "" {
		return fmt.Errorf("scheduler: stay %s has no %s contact", job.StayID, job.Channel)
	}

	values := conversation.TokenValues(bundle)
	msg := messaging.OutboundMessage{
		Channel: messaging.Channel(job.Channel),
		To:      recipient,
		Subject: conversation.Interpolate(template.Subject, values),
		Body:    conversation.Interpolate(template.Body, values),
	}
	if bundle.Thread != nil {
		msg.ThreadID = bundle.Thread.ID.String()
	}

	if s.sender == nil {
		return messaging.ErrChannelUnavailable
	}
	if _, err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	return nil
}

// rearm points the property's single wake timer at its minimum pending
// send time, or clears it when nothing is queued.
func (s *Service) rearm(ctx context.Context, propertyID uuid.UUID) {
	minAt, err := s.jobs.MinPendingSendAt(ctx, propertyID)
	if err != nil {
		s.logger.Error("failed to read min pending send time", "error", err, "property_id", propertyID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if timer, ok := s.timers[propertyID]; ok {
		timer.Stop()
		delete(s.timers, propertyID)
	}
	if minAt == nil {
		return
	}

	delay := minAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[propertyID] = time.AfterFunc(delay, func() { s.Wake(propertyID) })
	s.metrics.ObserveTimerRearm()
}

func activeChannels(settings stays.PropertySettings, stay stays.Stay) []string {
	var channels []string
	if settings.SMSEnabled && stay.GuestPhoneE164 != "" {
		channels = append(channels, string(messaging.ChannelSMS))
	}
	if settings.EmailEnabled && stay.GuestEmail != "" {
		channels = append(channels, string(messaging.ChannelEmail))
	}
	return channels
}

func recipientFor(stay stays.Stay, channel string) string {
	switch channel {
	case string(messaging.ChannelSMS):
		return stay.GuestPhoneE164
	case string(messaging.ChannelEmail):
		return stay.GuestEmail
	}
	return ""
}
