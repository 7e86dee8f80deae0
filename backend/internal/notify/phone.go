package notify

import (
	"fmt"
	"strings"

	"attendtrack/backend/internal/shared"
)

// NormalizePhone reduces a raw phone number to digits, prefixes the default
// country code onto bare 10-digit national numbers, and rejects anything
// outside 10-15 digits.
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 10 {
		digits = defaultCountryCode + digits
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", fmt.Errorf("%w: %q has %d digits", shared.ErrInvalidPhoneNumber, raw, len(digits))
	}
	return digits, nil
}
