package messaging

import (
	"context"
	"testing"
	"time"
)

func pgxmockTime(hour int) time.Time {
	return time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
}

type fakeSender struct {
	lastMsg OutboundMessage
	id      string
	err     error
}

func (f *fakeSender) Send(_ context.Context, msg OutboundMessage) (string, error) {
	f.lastMsg = msg
	return f.id, f.err
}

func TestRouterDispatchesByChannel(t *testing.T) {
	sms := &fakeSender{id: "SM1"}
	email := &fakeSender{id: "ses-1"}
	router := NewRouter(sms, email)

	id, err := router.Send(context.Background(), OutboundMessage{Channel: ChannelSMS, To: "+1555", Body: "hi"})
	if err != nil || id != "SM1" {
		t.Fatalf("sms dispatch: id=%q err=%v", id, err)
	}
	id, err = router.Send(context.Background(), OutboundMessage{Channel: ChannelEmail, To: "g@example.com", Body: "hi"})
	if err != nil || id != "ses-1" {
		t.Fatalf("email dispatch: id=%q err=%v", id, err)
	}
	if sms.lastMsg.To != "+1555" || email.lastMsg.To != "g@example.com" {
		t.Fatal("messages routed to wrong senders")
	}
}

func TestRouterUnavailableChannel(t *testing.T) {
	router := NewRouter(nil, nil)
	if _, err := router.Send(context.Background(), OutboundMessage{Channel: ChannelSMS}); err != ErrChannelUnavailable {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	if _, err := router.Send(context.Background(), OutboundMessage{Channel: "fax"}); err != ErrChannelUnavailable {
		t.Fatalf("expected ErrChannelUnavailable for unknown channel, got %v", err)
	}
}
