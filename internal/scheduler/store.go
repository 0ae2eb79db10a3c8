package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Job status values. A job only moves queued -> sent, queued -> failed
// (retry ceiling reached), or queued -> cancelled.
const (
	JobStatusQueued    = "queued"
	JobStatusSent      = "sent"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job is one future reminder for a stay.
type Job struct {
	ID             int64
	PropertyID     uuid.UUID
	StayID         uuid.UUID
	ThreadID       *uuid.UUID
	Channel        string
	RuleKey        string
	TemplateKey    string
	SendAt         time.Time
	Status         string
	Attempts       int
	IdempotencyKey string
	CreatedAt      time.Time
}

// IdempotencyKey derives the unique key that makes re-scheduling a stay
// non-duplicating: same stay, rule, channel, and instant collapse to
// one job.
func IdempotencyKey(stayID uuid.UUID, ruleKey, channel string, sendAt time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s", stayID, ruleKey, channel, sendAt.UTC().Format(time.RFC3339))
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JobStore persists scheduled jobs in Postgres.
type JobStore struct {
	pool Querier
}

func NewJobStore(pool Querier) *JobStore {
	if pool == nil {
		return nil
	}
	return &JobStore{pool: pool}
}

// InsertIfAbsent creates a queued job unless one with the same
// idempotency key exists. It reports whether a row was written.
func (s *JobStore) InsertIfAbsent(ctx context.Context, job Job) (bool, error) {
	if job.IdempotencyKey == "" {
		job.IdempotencyKey = IdempotencyKey(job.StayID, job.RuleKey, job.Channel, job.SendAt)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (property_id, stay_id, thread_id, channel, rule_key, template_key, send_at, status, attempts, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		job.PropertyID, job.StayID, job.ThreadID, job.Channel, job.RuleKey,
		job.TemplateKey, job.SendAt.UTC(), JobStatusQueued, job.IdempotencyKey,
	)
	if err != nil {
		return false, fmt.Errorf("scheduler: insert job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListDue returns up to limit queued jobs for a property whose send
// time has arrived, oldest first.
func (s *JobStore) ListDue(ctx context.Context, propertyID uuid.UUID, now time.Time, limit int) ([]Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, property_id, stay_id, thread_id, channel, rule_key, template_key, send_at, status, attempts, idempotency_key, created_at
		FROM scheduled_jobs
		WHERE property_id = $1 AND status = $2 AND send_at <= $3
		ORDER BY send_at ASC
		LIMIT $4`,
		propertyID, JobStatusQueued, now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: list due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(
			&job.ID, &job.PropertyID, &job.StayID, &job.ThreadID, &job.Channel, &job.RuleKey,
			&job.TemplateKey, &job.SendAt, &job.Status, &job.Attempts, &job.IdempotencyKey, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scheduler: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduler: iterate jobs: %w", err)
	}
	return jobs, nil
}

// MarkSent transitions a queued job to sent and counts the attempt.
func (s *JobStore) MarkSent(ctx context.Context, id int64) error {
	return s.transition(ctx, id, JobStatusSent)
}

// MarkFailed transitions a queued job to failed and counts the attempt.
// Failed is terminal; the job is never selected again.
func (s *JobStore) MarkFailed(ctx context.Context, id int64) error {
	return s.transition(ctx, id, JobStatusFailed)
}

func (s *JobStore) transition(ctx context.Context, id int64, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_jobs
		SET status = $2, attempts = attempts + 1
		WHERE id = $1 AND status = $3`,
		id, status, JobStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("scheduler: mark job %d %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheduler: job %d is not queued", id)
	}
	return nil
}

// Reschedule pushes a queued job's send time forward after a transient
// dispatch failure, counting the attempt. Status stays queued.
func (s *JobStore) Reschedule(ctx context.Context, id int64, sendAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_jobs
		SET send_at = $2, attempts = attempts + 1
		WHERE id = $1 AND status = $3`,
		id, sendAt.UTC(), JobStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("scheduler: reschedule job %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheduler: job %d is not queued", id)
	}
	return nil
}

// CancelForStay marks all queued jobs for a stay cancelled and returns
// how many were affected.
func (s *JobStore) CancelForStay(ctx context.Context, stayID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scheduled_jobs
		SET status = $2
		WHERE stay_id = $1 AND status = $3`,
		stayID, JobStatusCancelled, JobStatusQueued,
	)
	if err != nil {
		return 0, fmt.Errorf("scheduler: cancel jobs for stay %s: %w", stayID, err)
	}
	return tag.RowsAffected(), nil
}

// MinPendingSendAt returns the earliest queued send time for a
// property, or nil when the property has no pending jobs.
func (s *JobStore) MinPendingSendAt(ctx context.Context, propertyID uuid.UUID) (*time.Time, error) {
	var sendAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT send_at
		FROM scheduled_jobs
		WHERE property_id = $1 AND status = $2
		ORDER BY send_at ASC
		LIMIT 1`,
		propertyID, JobStatusQueued,
	).Scan(&sendAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduler: min pending send time: %w", err)
	}
	return &sendAt, nil
}

// PropertiesWithQueuedJobs lists property ids that still own queued
// jobs. The reconciliation sweep uses it to re-arm timers lost to a
// restart.
func (s *JobStore) PropertiesWithQueuedJobs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT property_id
		FROM scheduled_jobs
		WHERE status = $1`,
		JobStatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: list pending properties: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scheduler: scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduler: iterate property ids: %w", err)
	}
	return ids, nil
}
