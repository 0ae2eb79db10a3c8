package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs; transactions
// satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the provider message log in Postgres.
type Store struct {
	pool Querier
}

// NewStore creates a message log store.
func NewStore(pool Querier) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// MessageRecord is one logged inbound or outbound provider message.
type MessageRecord struct {
	ID                uuid.UUID
	ThreadID          uuid.UUID
	Direction         string
	Channel           string
	FromAddr          string
	ToAddr            string
	Subject           string
	Body              string
	ProviderMessageID string
	Status            string
	CreatedAt         time.Time
}

// InsertMessage appends a message log row and returns its id.
func (s *Store) InsertMessage(ctx context.Context, rec MessageRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = "queued"
	}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (
			id, thread_id, direction, channel, from_addr, to_addr,
			subject, body, provider_message_id, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,now())
		RETURNING id`,
		rec.ID, rec.ThreadID, rec.Direction, rec.Channel, rec.FromAddr, rec.ToAddr,
		rec.Subject, rec.Body, rec.ProviderMessageID, rec.Status,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	return id, nil
}

// UpdateMessageStatus records a delivery status transition reported by
// the provider.
func (s *Store) UpdateMessageStatus(ctx context.Context, providerMessageID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET status = $2, updated_at = now()
		WHERE provider_message_id = $1`,
		providerMessageID, status,
	)
	if err != nil {
		return fmt.Errorf("messaging: update message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("messaging: no message with provider id %s", providerMessageID)
	}
	return nil
}

// ListForThread returns the most recent message log rows for a thread,
// newest last.
func (s *Store) ListForThread(ctx context.Context, threadID uuid.UUID, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, direction, channel, from_addr, to_addr,
		       COALESCE(subject, ''), body, COALESCE(provider_message_id, ''), status, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		threadID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("messaging: list messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(&rec.ID, &rec.ThreadID, &rec.Direction, &rec.Channel,
			&rec.FromAddr, &rec.ToAddr, &rec.Subject, &rec.Body,
			&rec.ProviderMessageID, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messaging: iterate messages: %w", err)
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
