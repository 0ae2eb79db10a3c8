package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultPrompt = "You are the guest concierge for a short-term rental operator. " +
	"Answer practical questions about the stay warmly and concisely. " +
	"Never invent property details; when unsure, hand off to a human host."

// Store is the Postgres-backed configuration provider: base prompt,
// global settings, and the outbound template map.
type Store struct {
	pool Querier
}

// NewStore creates a configuration store.
func NewStore(pool Querier) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// Snapshot loads the full configuration in one pass.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	prompt, err := s.activePrompt(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	settings, err := s.settings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	templates, err := s.templates(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Prompt: prompt, Settings: settings, Templates: templates}, nil
}

func (s *Store) activePrompt(ctx context.Context) (string, error) {
	var body string
	err := s.pool.QueryRow(ctx, `
		SELECT body FROM assistant_prompts
		WHERE active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1`,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("assistant: load prompt: %w", err)
	}
	return body, nil
}

func (s *Store) settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.pool.QueryRow(ctx, `
		SELECT auto_reply_enabled, confidence_threshold, escalation_intents
		FROM assistant_settings
		WHERE id = 1`,
	).Scan(&out.AutoReplyEnabled, &out.ConfidenceThreshold, &out.EscalationIntents)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("assistant: load settings: %w", err)
	}
	return out, nil
}

func (s *Store) templates(ctx context.Context) (map[string]Template, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, COALESCE(subject, ''), body FROM assistant_templates`)
	if err != nil {
		return nil, fmt.Errorf("assistant: load templates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Template)
	for rows.Next() {
		var key string
		var tmpl Template
		if err := rows.Scan(&key, &tmpl.Subject, &tmpl.Body); err != nil {
			return nil, fmt.Errorf("assistant: scan template: %w", err)
		}
		out[key] = tmpl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assistant: iterate templates: %w", err)
	}
	return out, nil
}
