package stays

import (
	"time"

	"github.com/google/uuid"
)

// Thread status values. The orchestrator drives open -> needs_human;
// closed is set externally and terminal for auto-reply behavior.
const (
	ThreadStatusOpen       = "open"
	ThreadStatusNeedsHuman = "needs_human"
	ThreadStatusClosed     = "closed"
)

// Stay status values.
const (
	StayStatusConfirmed = "confirmed"
	StayStatusCancelled = "cancelled"
)

// Property is a rental unit managed by an operator company.
type Property struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Name         string
	Address      string
	Timezone     string
	DoorCode     string
	WifiName     string
	WifiPassword string
	CheckinTime  string
	CheckoutTime string
}

// Stay is one guest booking at a property.
type Stay struct {
	ID             uuid.UUID
	PropertyID     uuid.UUID
	GuestName      string
	GuestPhoneE164 string
	GuestEmail     string
	CheckinAt      time.Time
	CheckoutAt     time.Time
	Status         string
}

// Thread is one guest conversation, keyed by the orchestrator actor.
type Thread struct {
	ID            uuid.UUID
	StayID        uuid.UUID
	PropertyID    uuid.UUID
	Status        string
	LastChannel   string
	LastMessageAt *time.Time
}

// Bundle is the stay/property/thread trio loaded together for the
// scheduler and for orchestrator context assembly.
type Bundle struct {
	Stay     Stay
	Property Property
	Thread   *Thread
}

// PropertySettings holds per-property reminder configuration. Zero
// values are replaced by defaults in ApplyDefaults.
type PropertySettings struct {
	PropertyID   uuid.UUID
	SMSEnabled   bool
	EmailEnabled bool
	TMinus3Time  string
	TMinus1Time  string
	DayOfTime    string
	Timezone     string
}

// DefaultSettings are used when a property has no settings row.
func DefaultSettings(propertyID uuid.UUID) PropertySettings {
	return PropertySettings{
		PropertyID:   propertyID,
		SMSEnabled:   true,
		EmailEnabled: true,
		TMinus3Time:  "10:00",
		TMinus1Time:  "10:00",
		DayOfTime:    "09:00",
		Timezone:     "UTC",
	}
}

// ApplyDefaults fills empty fields from the per-property defaults.
func (s PropertySettings) ApplyDefaults() PropertySettings {
	def := DefaultSettings(s.PropertyID)
	if s.TMinus3Time == "" {
		s.TMinus3Time = def.TMinus3Time
	}
	if s.TMinus1Time == "" {
		s.TMinus1Time = def.TMinus1Time
	}
	if s.DayOfTime == "" {
		s.DayOfTime = def.DayOfTime
	}
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	return s
}
