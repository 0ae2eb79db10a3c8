package conversation

import (
	"regexp"
	"strings"

	"github.com/hostwise/guestline-ai-platform/internal/stays"
)

// tokenFallback replaces any token with no live value so guests never
// see raw template syntax.
const tokenFallback = "(ask your host)"

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// TokenValues builds the interpolation map from live stay and property
// data. Empty values are left out so they take the fallback.
func TokenValues(bundle *stays.Bundle) map[string]string {
	values := make(map[string]string, 8)
	if bundle == nil {
		return values
	}

	put := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			values[key] = value
		}
	}

	put("guest_name", bundle.Stay.GuestName)
	put("property_name", bundle.Property.Name)
	put("property_address", bundle.Property.Address)
	put("checkin_time", bundle.Property.CheckinTime)
	put("checkout_time", bundle.Property.CheckoutTime)
	put("property_code", bundle.Property.DoorCode)
	put("wifi_name", bundle.Property.WifiName)
	put("wifi_password", bundle.Property.WifiPassword)
	return values
}

// Interpolate replaces {{token}} placeholders in text with live values,
// substituting a fixed fallback for tokens with no value.
func Interpolate(text string, values map[string]string) string {
	if text == "" {
		return text
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := tokenPattern.FindStringSubmatch(match)[1]
		if value, ok := values[key]; ok {
			return value
		}
		return tokenFallback
	})
}

// interpolateDecision rewrites the reply fields of a decision in place
// using live stay/property values.
func interpolateDecision(d Decision, bundle *stays.Bundle) Decision {
	values := TokenValues(bundle)
	d.ReplyText = Interpolate(d.ReplyText, values)
	if d.ReplySubject != nil {
		subject := Interpolate(*d.ReplySubject, values)
		d.ReplySubject = &subject
	}
	return d
}
