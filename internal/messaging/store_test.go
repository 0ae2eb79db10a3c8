package messaging

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreInsertMessage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	threadID := uuid.New()
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), threadID, "outbound", "sms", "+15550002222", "+15550001111",
			"", "Your door code is 4477", "SMxxxx", "sent").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	if _, err := store.InsertMessage(context.Background(), MessageRecord{
		ThreadID:          threadID,
		Direction:         "outbound",
		Channel:           "sms",
		FromAddr:          "+15550002222",
		ToAddr:            "+15550001111",
		Body:              "Your door code is 4477",
		ProviderMessageID: "SMxxxx",
		Status:            "sent",
	}); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreUpdateMessageStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := &Store{pool: mock}

	mock.ExpectExec("UPDATE messages").
		WithArgs("SMxxxx", "delivered").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.UpdateMessageStatus(context.Background(), "SMxxxx", "delivered"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	mock.ExpectExec("UPDATE messages").
		WithArgs("SMmissing", "delivered").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := store.UpdateMessageStatus(context.Background(), "SMmissing", "delivered"); err == nil {
		t.Fatal("expected error for unknown provider message id")
	}
}

func TestListForThreadChronological(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := &Store{pool: mock}
	threadID := uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "thread_id", "direction", "channel", "from_addr", "to_addr",
		"subject", "body", "provider_message_id", "status", "created_at",
	}).
		AddRow(uuid.New(), threadID, "outbound", "sms", "+1b", "+1a", "", "second", "SM2", "sent", pgxmockTime(2)).
		AddRow(uuid.New(), threadID, "inbound", "sms", "+1a", "+1b", "", "first", "SM1", "received", pgxmockTime(1))

	mock.ExpectQuery("SELECT id, thread_id, direction").
		WithArgs(threadID, 50).
		WillReturnRows(rows)

	msgs, err := store.ListForThread(context.Background(), threadID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Body != "first" || msgs[1].Body != "second" {
		t.Fatalf("expected chronological order, got %q then %q", msgs[0].Body, msgs[1].Body)
	}
}
