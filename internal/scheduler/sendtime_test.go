package scheduler

import (
	"testing"
	"time"
)

func TestSendAtAcrossDSTTransition(t *testing.T) {
	// 2024-03-10 is the US spring-forward date.
	anchor := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := SendAt(anchor, 0, "09:00", "America/New_York")
	if err != nil {
		t.Fatalf("SendAt: %v", err)
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	local := got.In(loc)
	if local.Hour() != 9 || local.Minute() != 0 {
		t.Errorf("local time = %02d:%02d, want 09:00", local.Hour(), local.Minute())
	}
	if local.Year() != 2024 || local.Month() != time.March || local.Day() != 10 {
		t.Errorf("local date = %v, want 2024-03-10", local.Format("2006-01-02"))
	}
}

func TestSendAtAppliesDayOffset(t *testing.T) {
	anchor := time.Date(2026, 6, 12, 15, 0, 0, 0, time.UTC)

	got, err := SendAt(anchor, -3, "10:30", "Europe/Berlin")
	if err != nil {
		t.Fatalf("SendAt: %v", err)
	}

	loc, _ := time.LoadLocation("Europe/Berlin")
	local := got.In(loc)
	if local.Format("2006-01-02 15:04") != "2026-06-09 10:30" {
		t.Errorf("local = %s, want 2026-06-09 10:30", local.Format("2006-01-02 15:04"))
	}
}

func TestSendAtWrapsAtHalfDayBoundary(t *testing.T) {
	// Pacific/Auckland sits near UTC+13 in January; an early local time
	// pushes the observed-vs-desired difference past the 12h boundary.
	anchor := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	got, err := SendAt(anchor, 0, "00:30", "Pacific/Auckland")
	if err != nil {
		t.Fatalf("SendAt: %v", err)
	}

	loc, _ := time.LoadLocation("Pacific/Auckland")
	local := got.In(loc)
	if local.Hour() != 0 || local.Minute() != 30 {
		t.Errorf("local time = %02d:%02d, want 00:30", local.Hour(), local.Minute())
	}
}

func TestSendAtUTC(t *testing.T) {
	anchor := time.Date(2026, 6, 12, 19, 0, 0, 0, time.UTC)

	got, err := SendAt(anchor, -1, "09:00", "UTC")
	if err != nil {
		t.Fatalf("SendAt: %v", err)
	}
	want := time.Date(2026, 6, 11, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SendAt = %v, want %v", got, want)
	}
}

func TestSendAtRejectsBadInput(t *testing.T) {
	anchor := time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC)

	if _, err := SendAt(anchor, 0, "09:00", "Mars/Olympus"); err == nil {
		t.Error("expected error for unknown timezone")
	}
	for _, bad := range []string{"", "9:00", "24:00", "09:60", "0900", "ten"} {
		if _, err := SendAt(anchor, 0, bad, "UTC"); err == nil {
			t.Errorf("expected error for time of day %q", bad)
		}
	}
}

func TestRuleTimeOfDayFallsBackOnBadSetting(t *testing.T) {
	rule := Rules()[0]

	settings := testSettings()
	settings.TMinus3Time = "25:99"
	if got := rule.TimeOfDay(settings); got != rule.DefaultTime {
		t.Errorf("TimeOfDay = %q, want default %q", got, rule.DefaultTime)
	}

	settings.TMinus3Time = "08:15"
	if got := rule.TimeOfDay(settings); got != "08:15" {
		t.Errorf("TimeOfDay = %q, want configured 08:15", got)
	}
}

func TestTemplateKey(t *testing.T) {
	if got := TemplateKey(RuleTMinus1, "sms"); got != "t_minus_1_sms" {
		t.Errorf("TemplateKey = %q", got)
	}
	if got := TemplateKey(RuleDayOf, "email"); got != "day_of_email" {
		t.Errorf("TemplateKey = %q", got)
	}
}
