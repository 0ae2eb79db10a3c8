package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/conversation"
	"github.com/hostwise/guestline-ai-platform/internal/http/handlers"
	"github.com/hostwise/guestline-ai-platform/internal/scheduler"
	"github.com/hostwise/guestline-ai-platform/internal/stays"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

type noopPublisher struct{}

func (noopPublisher) EnqueueInbound(context.Context, conversation.InboundEvent) error { return nil }

type staticResolver struct{}

func (staticResolver) ResolveThreadByContact(_ context.Context, _, address string) (*stays.Bundle, error) {
	if address != "+15550001111" {
		return nil, stays.ErrNotFound
	}
	propertyID := uuid.New()
	stayID := uuid.New()
	return &stays.Bundle{
		Stay:     stays.Stay{ID: stayID, PropertyID: propertyID, GuestName: "Ana"},
		Property: stays.Property{ID: propertyID, Name: "Seaside Loft"},
		Thread:   &stays.Thread{ID: uuid.New(), StayID: stayID, PropertyID: propertyID, Status: "open"},
	}, nil
}

type noDraftSuggestions struct{}

func (noDraftSuggestions) LatestSuggestion(context.Context, uuid.UUID) (conversation.Draft, error) {
	return conversation.Draft{}, conversation.ErrNoDraft
}

type okReminders struct{}

func (okReminders) ScheduleForStay(context.Context, uuid.UUID) (scheduler.Result, error) {
	return scheduler.ResultOK, nil
}

func (okReminders) RescheduleForStay(context.Context, uuid.UUID) (scheduler.Result, error) {
	return scheduler.ResultOK, nil
}

func (okReminders) CancelForStay(context.Context, uuid.UUID) (scheduler.Result, error) {
	return scheduler.ResultOK, nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() { c.calls++ }

func newTestRouter(t *testing.T, invalidator *countingInvalidator) http.Handler {
	t.Helper()

	logger := logging.Default()
	cfg := &Config{
		Logger:           logger,
		WebhookHandler:   handlers.NewWebhookHandler(noopPublisher{}, staticResolver{}, logger),
		ThreadsHandler:   handlers.NewThreadsHandler(noDraftSuggestions{}, logger),
		RemindersHandler: handlers.NewRemindersHandler(okReminders{}, logger),
		AdminHandler:     handlers.NewAdminHandler(invalidator, logger),
		AdminAuthSecret:  "router-secret",
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &countingInvalidator{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterTwilioWebhookEndpoint(t *testing.T) {
	router := newTestRouter(t, &countingInvalidator{})

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "+15550001111")
	form.Set("To", "+15559990000")
	form.Set("Body", "Hi there")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected XML response, got %s", ct)
	}
}

func TestRouterSuggestionRouteMounted(t *testing.T) {
	router := newTestRouter(t, &countingInvalidator{})

	req := httptest.NewRequest(http.MethodGet, "/threads/"+uuid.New().String()+"/suggestion", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// The fake store has no drafts, so 404 with the handler's body shows
	// the route itself is wired.
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "no suggestion") {
		t.Fatalf("expected suggestion handler response, got %q", rr.Body.String())
	}
}

func TestRouterReminderRoutes(t *testing.T) {
	router := newTestRouter(t, &countingInvalidator{})
	stayID := uuid.New().String()

	for _, op := range []string{"schedule", "reschedule", "cancel"} {
		req := httptest.NewRequest(http.MethodPost, "/stays/"+stayID+"/reminders/"+op, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", op, http.StatusOK, rr.Code)
		}
	}
}

func TestRouterAdminRequiresJWT(t *testing.T) {
	invalidator := &countingInvalidator{}
	router := newTestRouter(t, invalidator)

	req := httptest.NewRequest(http.MethodPost, "/admin/assistant/invalidate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if invalidator.calls != 0 {
		t.Fatalf("expected no invalidations, got %d", invalidator.calls)
	}
}

func TestRouterAdminInvalidateWithJWT(t *testing.T) {
	invalidator := &countingInvalidator{}
	router := newTestRouter(t, invalidator)

	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("router-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/assistant/invalidate", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if invalidator.calls != 1 {
		t.Fatalf("expected 1 invalidation, got %d", invalidator.calls)
	}
}
