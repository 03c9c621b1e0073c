package dental

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used when no region is configured.
const DefaultPhoneRegion = "ID"

// NormalizeContact formats a phone number as E.164 when it parses as a valid
// number for region. Anything else, such as an email address, is returned
// trimmed but otherwise as typed.
func NormalizeContact(contact, region string) string {
	contact = strings.TrimSpace(contact)
	if contact == "" || strings.Contains(contact, "@") {
		return contact
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(contact, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return contact
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
