// Package phone normalizes lead phone numbers for storage and matching.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers entered without a country prefix.
// The lead base is Dutch.
var DefaultRegion = "NL"

// NormalizeE164 canonicalizes a phone number to E.164 so the same number
// always stores identically regardless of how an agent typed it. Input that
// does not parse as a valid number is kept as typed (trimmed), not rejected:
// a lead with an odd number is still a lead.
func NormalizeE164(input string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
