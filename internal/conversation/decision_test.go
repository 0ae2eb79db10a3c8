package conversation

import (
	"strings"
	"testing"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	raw := `{"intent":"wifi","confidence":0.9,"needs_human":false,"auto_reply_ok":true,"reply_channel":"sms","reply_subject":null,"reply_text":"Password is {{wifi_password}}","internal_note":"guest asked for wifi"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision returned error: %v", err)
	}
	if d.Intent != "wifi" {
		t.Errorf("intent = %q, want wifi", d.Intent)
	}
	if d.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", d.Confidence)
	}
	if !d.AutoReplyOK || d.NeedsHuman {
		t.Errorf("flags = auto_reply_ok:%v needs_human:%v", d.AutoReplyOK, d.NeedsHuman)
	}
	if d.ReplySubject != nil {
		t.Errorf("reply_subject = %v, want nil", *d.ReplySubject)
	}
}

func TestParseDecisionFencedJSON(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"intent\":\"checkin\",\"confidence\":0.8,\"needs_human\":false,\"auto_reply_ok\":true,\"reply_channel\":\"email\",\"reply_subject\":\"Check-in details\",\"reply_text\":\"Check-in is at {{checkin_time}}.\",\"internal_note\":\"\"}\n```"

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision returned error: %v", err)
	}
	if d.Intent != "checkin" {
		t.Errorf("intent = %q, want checkin", d.Intent)
	}
	if d.ReplySubject == nil || *d.ReplySubject != "Check-in details" {
		t.Errorf("reply_subject = %v, want Check-in details", d.ReplySubject)
	}
}

func TestParseDecisionNestedBraces(t *testing.T) {
	raw := `{"intent":"other","confidence":0.5,"needs_human":true,"auto_reply_ok":false,"reply_channel":"","reply_subject":null,"reply_text":"","internal_note":"guest sent {\"weird\": \"json\"}"}`

	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision returned error: %v", err)
	}
	if !strings.Contains(d.InternalNote, "weird") {
		t.Errorf("internal_note = %q, escaped braces mangled", d.InternalNote)
	}
}

func TestParseDecisionRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "I cannot answer that."},
		{"truncated", `{"intent":"wifi","confidence":0.9`},
		{"missing intent", `{"intent":"","confidence":0.9,"needs_human":false,"auto_reply_ok":false,"reply_channel":"","reply_text":"","internal_note":""}`},
		{"confidence too high", `{"intent":"wifi","confidence":1.2,"needs_human":false,"auto_reply_ok":false,"reply_channel":"","reply_text":"","internal_note":""}`},
		{"confidence negative", `{"intent":"wifi","confidence":-0.1,"needs_human":false,"auto_reply_ok":false,"reply_channel":"","reply_text":"","internal_note":""}`},
		{"bad channel", `{"intent":"wifi","confidence":0.9,"needs_human":false,"auto_reply_ok":true,"reply_channel":"fax","reply_text":"hi","internal_note":""}`},
		{"auto reply missing channel", `{"intent":"wifi","confidence":0.9,"needs_human":false,"auto_reply_ok":true,"reply_channel":"","reply_text":"hi","internal_note":""}`},
		{"auto reply missing text", `{"intent":"wifi","confidence":0.9,"needs_human":false,"auto_reply_ok":true,"reply_channel":"sms","reply_text":"","internal_note":""}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDecision(tc.raw); err == nil {
				t.Fatalf("ParseDecision(%q) succeeded, want error", tc.raw)
			}
		})
	}
}

func TestFallbackDecisionWellFormed(t *testing.T) {
	d := FallbackDecision("model timed out")

	if !d.NeedsHuman {
		t.Error("fallback must set needs_human")
	}
	if d.Confidence != 0 {
		t.Errorf("fallback confidence = %v, want 0", d.Confidence)
	}
	if d.AutoReplyOK {
		t.Error("fallback must not allow auto-reply")
	}
	if d.ReplyText != "" {
		t.Errorf("fallback reply_text = %q, want empty", d.ReplyText)
	}
	if !strings.Contains(d.InternalNote, "model timed out") {
		t.Errorf("internal_note = %q, want failure reason recorded", d.InternalNote)
	}
}
