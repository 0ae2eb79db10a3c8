package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Escalation carries everything a human operator needs to pick up a
// conversation.
type Escalation struct {
	ThreadID       string
	GuestName      string
	GuestContact   string
	PropertyName   string
	CheckinAt      time.Time
	CheckoutAt     time.Time
	LastMessage    string
	Intent         string
	Confidence     float64
	SuggestedReply string
	Reason         string
}

// Notifier delivers an escalation alert to the operator channel.
// Delivery is best-effort; failures are logged, never propagated to
// the ingest path.
type Notifier interface {
	NotifyEscalation(ctx context.Context, esc Escalation) error
}

// FormatAlert renders the operator-facing alert text.
func FormatAlert(esc Escalation) string {
	var b strings.Builder
	b.WriteString("Guest needs a human\n\n")
	fmt.Fprintf(&b, "Guest: %s (%s)\n", orDash(esc.GuestName), orDash(esc.GuestContact))
	fmt.Fprintf(&b, "Property: %s\n", orDash(esc.PropertyName))
	if !esc.CheckinAt.IsZero() {
		fmt.Fprintf(&b, "Stay: %s to %s\n",
			esc.CheckinAt.Format("Jan 2"), esc.CheckoutAt.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&b, "Intent: %s (confidence %.2f)\n", orDash(esc.Intent), esc.Confidence)
	if esc.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", esc.Reason)
	}
	fmt.Fprintf(&b, "\nLast message:\n%s\n", orDash(esc.LastMessage))
	if esc.SuggestedReply != "" {
		fmt.Fprintf(&b, "\nSuggested reply:\n%s\n", esc.SuggestedReply)
	}
	fmt.Fprintf(&b, "\nThread: %s", esc.ThreadID)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown)"
	}
	return s
}
