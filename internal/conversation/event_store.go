package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Event types kept in the per-thread event log.
const (
	EventTypeInbound  = "inbound"
	EventTypeOutbound = "outbound"
)

// Querier is the subset of pgxpool.Pool the stores need; transactions
// satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRecord is one row of a thread's event log. Rows are append-only;
// the provider message id is the dedup key within a thread.
type EventRecord struct {
	ID                int64
	ThreadID          uuid.UUID
	EventType         string
	Channel           string
	ProviderMessageID string
	FromAddr          string
	ToAddr            string
	Subject           string
	Body              string
	ReceivedAt        time.Time
}

// EventStore persists the per-thread event log in Postgres.
type EventStore struct {
	pool Querier
}

func NewEventStore(pool Querier) *EventStore {
	if pool == nil {
		return nil
	}
	return &EventStore{pool: pool}
}

// InsertIfAbsent appends an event row unless the thread already holds
// one with the same provider message id. It reports whether a row was
// written; false means duplicate delivery.
func (s *EventStore) InsertIfAbsent(ctx context.Context, rec EventRecord) (bool, error) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO thread_events (thread_id, event_type, channel, provider_message_id, from_addr, to_addr, subject, body, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (thread_id, provider_message_id) DO NOTHING`,
		rec.ThreadID, rec.EventType, rec.Channel, rec.ProviderMessageID,
		rec.FromAddr, rec.ToAddr, rec.Subject, rec.Body, rec.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("conversation: insert thread event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByThread returns a thread's full event log in chronological order.
func (s *EventStore) ListByThread(ctx context.Context, threadID uuid.UUID) ([]EventRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, event_type, channel, provider_message_id, from_addr, to_addr, subject, body, received_at
		FROM thread_events
		WHERE thread_id = $1
		ORDER BY id ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation: list thread events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(
			&rec.ID, &rec.ThreadID, &rec.EventType, &rec.Channel, &rec.ProviderMessageID,
			&rec.FromAddr, &rec.ToAddr, &rec.Subject, &rec.Body, &rec.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("conversation: scan thread event: %w", err)
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate thread events: %w", err)
	}
	return events, nil
}
