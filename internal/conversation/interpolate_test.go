package conversation

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/stays"
)

func testBundle() *stays.Bundle {
	return &stays.Bundle{
		Stay: stays.Stay{
			ID:             uuid.New(),
			GuestName:      "Ana",
			GuestPhoneE164: "+15551234567",
			CheckinAt:      time.Date(2026, 6, 12, 19, 0, 0, 0, time.UTC),
			CheckoutAt:     time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC),
			Status:         stays.StayStatusConfirmed,
		},
		Property: stays.Property{
			ID:           uuid.New(),
			Name:         "Seaside Loft",
			Address:      "12 Harbor Rd",
			Timezone:     "America/New_York",
			DoorCode:     "4821",
			WifiName:     "seaside-guest",
			WifiPassword: "blue-harbor-99",
			CheckinTime:  "15:00",
			CheckoutTime: "11:00",
		},
	}
}

func TestInterpolateReplacesTokens(t *testing.T) {
	values := TokenValues(testBundle())

	got := Interpolate("Hi {{guest_name}}, the WiFi at {{property_name}} is {{wifi_name}} / {{wifi_password}}.", values)
	want := "Hi Ana, the WiFi at Seaside Loft is seaside-guest / blue-harbor-99."
	if got != want {
		t.Errorf("Interpolate = %q, want %q", got, want)
	}
}

func TestInterpolateFallbackForMissingValue(t *testing.T) {
	bundle := testBundle()
	bundle.Property.DoorCode = ""
	values := TokenValues(bundle)

	got := Interpolate("The door code is {{property_code}}.", values)
	want := "The door code is " + tokenFallback + "."
	if got != want {
		t.Errorf("Interpolate = %q, want %q", got, want)
	}
}

func TestInterpolateUnknownToken(t *testing.T) {
	got := Interpolate("Your gate pass is {{gate_pass}}.", TokenValues(testBundle()))
	want := "Your gate pass is " + tokenFallback + "."
	if got != want {
		t.Errorf("Interpolate = %q, want %q", got, want)
	}
}

func TestInterpolateToleratesWhitespaceInToken(t *testing.T) {
	got := Interpolate("Check-in is {{ checkin_time }}.", TokenValues(testBundle()))
	if got != "Check-in is 15:00." {
		t.Errorf("Interpolate = %q", got)
	}
}

func TestInterpolateDecisionRewritesSubject(t *testing.T) {
	subject := "Your stay at {{property_name}}"
	d := Decision{
		Intent:       "checkin",
		ReplyChannel: "email",
		ReplySubject: &subject,
		ReplyText:    "See you at {{checkin_time}}, {{guest_name}}!",
	}

	out := interpolateDecision(d, testBundle())
	if out.ReplyText != "See you at 15:00, Ana!" {
		t.Errorf("reply_text = %q", out.ReplyText)
	}
	if out.ReplySubject == nil || *out.ReplySubject != "Your stay at Seaside Loft" {
		t.Errorf("reply_subject = %v", out.ReplySubject)
	}
}

func TestInterpolateDecisionNilBundle(t *testing.T) {
	out := interpolateDecision(Decision{ReplyText: "Hi {{guest_name}}"}, nil)
	if out.ReplyText != "Hi "+tokenFallback {
		t.Errorf("reply_text = %q", out.ReplyText)
	}
}
