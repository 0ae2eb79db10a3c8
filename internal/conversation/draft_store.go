package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoDraft is returned when a thread has no stored suggestion yet.
var ErrNoDraft = errors.New("conversation: no draft for thread")

// Draft is one stored decision payload. The latest row per thread is
// the authoritative suggestion; older rows are retained as history.
type Draft struct {
	ID        int64
	ThreadID  uuid.UUID
	Decision  Decision
	CreatedAt time.Time
}

// DraftStore persists decision payloads in Postgres as JSONB.
type DraftStore struct {
	pool Querier
}

func NewDraftStore(pool Querier) *DraftStore {
	if pool == nil {
		return nil
	}
	return &DraftStore{pool: pool}
}

// Insert appends a draft for the thread and returns the stored row.
func (s *DraftStore) Insert(ctx context.Context, threadID uuid.UUID, decision Decision) (Draft, error) {
	payload, err := json.Marshal(decision)
	if err != nil {
		return Draft{}, fmt.Errorf("conversation: encode draft payload: %w", err)
	}

	draft := Draft{ThreadID: threadID, Decision: decision}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO drafts (thread_id, payload)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		threadID, payload,
	).Scan(&draft.ID, &draft.CreatedAt)
	if err != nil {
		return Draft{}, fmt.Errorf("conversation: insert draft: %w", err)
	}
	return draft, nil
}

// Latest returns the most recent draft for a thread, or ErrNoDraft.
func (s *DraftStore) Latest(ctx context.Context, threadID uuid.UUID) (Draft, error) {
	var (
		draft   Draft
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, payload, created_at
		FROM drafts
		WHERE thread_id = $1
		ORDER BY id DESC
		LIMIT 1`,
		threadID,
	).Scan(&draft.ID, &draft.ThreadID, &payload, &draft.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, ErrNoDraft
	}
	if err != nil {
		return Draft{}, fmt.Errorf("conversation: load latest draft: %w", err)
	}

	if err := json.Unmarshal(payload, &draft.Decision); err != nil {
		return Draft{}, fmt.Errorf("conversation: decode draft payload: %w", err)
	}
	return draft, nil
}
