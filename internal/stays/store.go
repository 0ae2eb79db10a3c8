package stays

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stay, thread, or property is unknown.
var ErrNotFound = errors.New("stays: not found")

// Store reads stay/property/thread state owned by the CRUD layer and
// updates the thread metadata the orchestrator drives.
type Store struct {
	db *sql.DB
}

// NewStore creates a stay store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// GetStayBundle loads a stay with its property and thread (if any).
func (s *Store) GetStayBundle(ctx context.Context, stayID uuid.UUID) (*Bundle, error) {
	var b Bundle
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.property_id, s.guest_name, COALESCE(s.guest_phone_e164, ''), COALESCE(s.guest_email, ''),
		       s.checkin_at, s.checkout_at, s.status,
		       p.id, p.company_id, p.name, COALESCE(p.address, ''), p.timezone,
		       COALESCE(p.door_code, ''), COALESCE(p.wifi_name, ''), COALESCE(p.wifi_password, ''),
		       COALESCE(p.checkin_time, ''), COALESCE(p.checkout_time, '')
		FROM stays s
		JOIN properties p ON p.id = s.property_id
		WHERE s.id = $1`,
		stayID,
	).Scan(
		&b.Stay.ID, &b.Stay.PropertyID, &b.Stay.GuestName, &b.Stay.GuestPhoneE164, &b.Stay.GuestEmail,
		&b.Stay.CheckinAt, &b.Stay.CheckoutAt, &b.Stay.Status,
		&b.Property.ID, &b.Property.CompanyID, &b.Property.Name, &b.Property.Address, &b.Property.Timezone,
		&b.Property.DoorCode, &b.Property.WifiName, &b.Property.WifiPassword,
		&b.Property.CheckinTime, &b.Property.CheckoutTime,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stays: load stay bundle: %w", err)
	}

	thread, err := s.threadForStay(ctx, b.Stay.ID)
	if err != nil {
		return nil, err
	}
	b.Thread = thread
	return &b, nil
}

func (s *Store) threadForStay(ctx context.Context, stayID uuid.UUID) (*Thread, error) {
	var t Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, stay_id, property_id, status, COALESCE(last_channel, ''), last_message_at
		FROM threads
		WHERE stay_id = $1`,
		stayID,
	).Scan(&t.ID, &t.StayID, &t.PropertyID, &t.Status, &t.LastChannel, &t.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stays: load thread for stay: %w", err)
	}
	return &t, nil
}

// GetThreadBundle resolves a thread id into thread+stay+property, the
// context the orchestrator needs for one ingest.
func (s *Store) GetThreadBundle(ctx context.Context, threadID uuid.UUID) (*Bundle, error) {
	var t Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, stay_id, property_id, status, COALESCE(last_channel, ''), last_message_at
		FROM threads
		WHERE id = $1`,
		threadID,
	).Scan(&t.ID, &t.StayID, &t.PropertyID, &t.Status, &t.LastChannel, &t.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stays: load thread: %w", err)
	}

	b, err := s.GetStayBundle(ctx, t.StayID)
	if err != nil {
		return nil, err
	}
	b.Thread = &t
	return b, nil
}

// ResolveThreadByContact maps an inbound provider address to the
// conversation thread of the guest's most recent confirmed stay.
// channel is "sms" or "email"; address is the guest's phone or email.
func (s *Store) ResolveThreadByContact(ctx context.Context, channel, address string) (*Bundle, error) {
	column := "guest_phone_e164"
	if channel == "email" {
		column = "guest_email"
	}

	var stayID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM stays
		WHERE `+column+` = $1 AND status = $2
		ORDER BY checkin_at DESC
		LIMIT 1`,
		address, StayStatusConfirmed,
	).Scan(&stayID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stays: resolve stay by contact: %w", err)
	}

	b, err := s.GetStayBundle(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if b.Thread == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// GetPropertySettings loads reminder settings, falling back to defaults
// when the property has no settings row.
func (s *Store) GetPropertySettings(ctx context.Context, propertyID uuid.UUID) (PropertySettings, error) {
	var out PropertySettings
	err := s.db.QueryRowContext(ctx, `
		SELECT property_id, sms_enabled, email_enabled,
		       COALESCE(t_minus_3_time, ''), COALESCE(t_minus_1_time, ''), COALESCE(day_of_time, ''),
		       COALESCE(timezone, '')
		FROM property_settings
		WHERE property_id = $1`,
		propertyID,
	).Scan(&out.PropertyID, &out.SMSEnabled, &out.EmailEnabled,
		&out.TMinus3Time, &out.TMinus1Time, &out.DayOfTime, &out.Timezone)
	if err == sql.ErrNoRows {
		return DefaultSettings(propertyID), nil
	}
	if err != nil {
		return PropertySettings{}, fmt.Errorf("stays: load property settings: %w", err)
	}
	return out.ApplyDefaults(), nil
}

// UpdateThreadStatus transitions the thread status.
func (s *Store) UpdateThreadStatus(ctx context.Context, threadID uuid.UUID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE threads SET status = $2, updated_at = $3 WHERE id = $1`,
		threadID, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("stays: update thread status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchThread refreshes last-message metadata after an inbound or
// outbound message.
func (s *Store) TouchThread(ctx context.Context, threadID uuid.UUID, channel string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE threads
		SET last_channel = $2, last_message_at = $3, updated_at = $3
		WHERE id = $1`,
		threadID, channel, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("stays: touch thread: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
