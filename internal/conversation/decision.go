package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decision is the structured output of the decision engine. It is
// persisted verbatim as a draft and interpreted by the orchestrator.
type Decision struct {
	Intent       string  `json:"intent"`
	Confidence   float64 `json:"confidence"`
	NeedsHuman   bool    `json:"needs_human"`
	AutoReplyOK  bool    `json:"auto_reply_ok"`
	ReplyChannel string  `json:"reply_channel"`
	ReplySubject *string `json:"reply_subject"`
	ReplyText    string  `json:"reply_text"`
	InternalNote string  `json:"internal_note"`
}

// FallbackDecision is substituted whenever the model call fails or its
// output fails validation. It always routes the thread to a human.
func FallbackDecision(reason string) Decision {
	return Decision{
		Intent:       "unknown",
		Confidence:   0,
		NeedsHuman:   true,
		AutoReplyOK:  false,
		InternalNote: "decision engine unavailable: " + reason,
	}
}

// ParseDecision extracts a Decision from raw model output. Models often
// wrap JSON in markdown fences or prose, so the first balanced JSON
// object in the text is used.
func ParseDecision(raw string) (Decision, error) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return Decision{}, fmt.Errorf("conversation: no JSON object in model output")
	}

	var d Decision
	if err := json.Unmarshal([]byte(jsonText), &d); err != nil {
		return Decision{}, fmt.Errorf("conversation: decode decision: %w", err)
	}
	if err := d.validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

func (d Decision) validate() error {
	if strings.TrimSpace(d.Intent) == "" {
		return fmt.Errorf("conversation: decision missing intent")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("conversation: confidence %v out of range", d.Confidence)
	}
	switch d.ReplyChannel {
	case "", "sms", "email":
	default:
		return fmt.Errorf("conversation: unsupported reply channel %q", d.ReplyChannel)
	}
	if d.AutoReplyOK && !d.NeedsHuman {
		if d.ReplyChannel == "" {
			return fmt.Errorf("conversation: auto-reply decision missing reply channel")
		}
		if strings.TrimSpace(d.ReplyText) == "" {
			return fmt.Errorf("conversation: auto-reply decision missing reply text")
		}
	}
	return nil
}

// extractJSONObject returns the first balanced top-level JSON object in
// text, honoring strings and escapes.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
