package scheduler

import (
	"strings"

	"github.com/hostwise/guestline-ai-platform/internal/stays"
)

// Rule keys, fixed for all properties.
const (
	RuleTMinus3 = "T_MINUS_3"
	RuleTMinus1 = "T_MINUS_1"
	RuleDayOf   = "DAY_OF"
)

// Rule is one reminder in the fixed schedule: a day offset relative to
// check-in plus a fallback time-of-day used when the property's own
// setting is absent or unparsable.
type Rule struct {
	Key         string
	OffsetDays  int
	DefaultTime string
}

// Rules returns the fixed reminder rule set in firing order.
func Rules() []Rule {
	return []Rule{
		{Key: RuleTMinus3, OffsetDays: -3, DefaultTime: "10:00"},
		{Key: RuleTMinus1, OffsetDays: -1, DefaultTime: "10:00"},
		{Key: RuleDayOf, OffsetDays: 0, DefaultTime: "09:00"},
	}
}

// TimeOfDay returns the property's configured send time for a rule,
// falling back to the rule default when the setting is missing or not
// a valid HH:MM string.
func (r Rule) TimeOfDay(settings stays.PropertySettings) string {
	var configured string
	switch r.Key {
	case RuleTMinus3:
		configured = settings.TMinus3Time
	case RuleTMinus1:
		configured = settings.TMinus1Time
	case RuleDayOf:
		configured = settings.DayOfTime
	}
	if _, _, err := parseTimeOfDay(configured); err != nil {
		return r.DefaultTime
	}
	return configured
}

// TemplateKey names the message template for a rule and channel, e.g.
// "t_minus_1_sms".
func TemplateKey(ruleKey, channel string) string {
	return strings.ToLower(ruleKey) + "_" + channel
}
