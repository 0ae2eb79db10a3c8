package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Escalation
	err  error
}

func (r *recordingNotifier) NotifyEscalation(_ context.Context, esc Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, esc)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestWorkerDeliversEnqueuedAlerts(t *testing.T) {
	notifier := &recordingNotifier{}
	w := NewWorker(notifier, logging.Default())
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	if err := w.Enqueue(Escalation{ThreadID: "t1", Intent: "complaint"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("alert never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	w.Wait()
}

func TestWorkerNotifyFailureDoesNotPropagate(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	w := NewWorker(notifier, logging.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := w.Enqueue(Escalation{ThreadID: "t2"}); err != nil {
		t.Fatalf("enqueue should not surface delivery errors: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("failing alert never attempted")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFormatAlertIncludesCoreFields(t *testing.T) {
	text := FormatAlert(Escalation{
		ThreadID:       "thread-42",
		GuestName:      "Dana Reyes",
		GuestContact:   "+15550001111",
		PropertyName:   "Seaside Loft",
		Intent:         "refund",
		Confidence:     0.42,
		LastMessage:    "I want my money back",
		SuggestedReply: "I'm sorry to hear that.",
	})
	for _, want := range []string{"Dana Reyes", "Seaside Loft", "refund", "0.42", "I want my money back", "thread-42"} {
		if !strings.Contains(text, want) {
			t.Fatalf("alert missing %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifierPostsToBotAPI(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bot-token", "chat-1", logging.Default())
	n.baseURL = srv.URL
	if err := n.NotifyEscalation(context.Background(), Escalation{ThreadID: "t3", GuestName: "Sam"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotBody, "chat-1") || !strings.Contains(gotBody, "Sam") {
		t.Fatalf("unexpected body %q", gotBody)
	}
}
