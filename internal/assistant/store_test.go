package assistant

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestSnapshotLoadsAllSections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := &Store{pool: mock}

	mock.ExpectQuery("SELECT body FROM assistant_prompts").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow("You are a concierge."))
	mock.ExpectQuery("SELECT auto_reply_enabled, confidence_threshold, escalation_intents").
		WillReturnRows(pgxmock.NewRows([]string{"auto_reply_enabled", "confidence_threshold", "escalation_intents"}).
			AddRow(true, 0.8, []string{"complaint"}))
	mock.ExpectQuery("SELECT key, COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"key", "subject", "body"}).
			AddRow("DAY_OF_sms", "", "Welcome {{guest_name}}!").
			AddRow("T_MINUS_1_email", "Your stay tomorrow", "See you at {{property_name}}."))

	snap, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Prompt != "You are a concierge." {
		t.Fatalf("unexpected prompt %q", snap.Prompt)
	}
	if snap.Settings.ConfidenceThreshold != 0.8 {
		t.Fatalf("unexpected threshold %v", snap.Settings.ConfidenceThreshold)
	}
	if len(snap.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(snap.Templates))
	}
	if snap.Templates["T_MINUS_1_email"].Subject != "Your stay tomorrow" {
		t.Fatalf("unexpected subject %q", snap.Templates["T_MINUS_1_email"].Subject)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSnapshotDefaultsWhenEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := &Store{pool: mock}

	mock.ExpectQuery("SELECT body FROM assistant_prompts").
		WillReturnRows(pgxmock.NewRows([]string{"body"}))
	mock.ExpectQuery("SELECT auto_reply_enabled, confidence_threshold, escalation_intents").
		WillReturnRows(pgxmock.NewRows([]string{"auto_reply_enabled", "confidence_threshold", "escalation_intents"}))
	mock.ExpectQuery("SELECT key, COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"key", "subject", "body"}))

	snap, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Prompt == "" {
		t.Fatal("expected built-in default prompt")
	}
	if !snap.Settings.AutoReplyEnabled {
		t.Fatal("expected default auto-reply enabled")
	}
	if snap.Settings.ConfidenceThreshold != 0.7 {
		t.Fatalf("unexpected default threshold %v", snap.Settings.ConfidenceThreshold)
	}
}
