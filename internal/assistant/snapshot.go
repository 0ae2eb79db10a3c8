package assistant

// Settings are the operator-tunable knobs the orchestrator reads on
// every decision.
type Settings struct {
	AutoReplyEnabled    bool
	ConfidenceThreshold float64
	EscalationIntents   []string
}

// Template is one named outbound message template. Subject is only
// used on the email channel.
type Template struct {
	Subject string
	Body    string
}

// Snapshot is the point-in-time configuration an orchestrator caches:
// base system prompt, global settings, and the template map.
type Snapshot struct {
	Prompt    string
	Settings  Settings
	Templates map[string]Template
}

// EscalatesIntent reports whether the intent is on the forced
// escalation list.
func (s Settings) EscalatesIntent(intent string) bool {
	for _, candidate := range s.EscalationIntents {
		if candidate == intent {
			return true
		}
	}
	return false
}

// DefaultSettings applies when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		AutoReplyEnabled:    true,
		ConfidenceThreshold: 0.7,
		EscalationIntents:   []string{"complaint", "refund", "emergency"},
	}
}
