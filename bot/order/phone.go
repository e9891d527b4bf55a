// Package order captures purchase intents: phone validation and the
// operator notification text.
package order

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for numbers that cannot be read as an Uzbek
// subscriber number.
var ErrInvalidPhone = errors.New("order: invalid phone number")

// isLocalPrefix reports whether a bare nine-digit number starts with a known
// Uzbek operator or city code digit.
func isLocalPrefix(b byte) bool {
	switch b {
	case '9', '8', '7', '6', '5', '3':
		return true
	}
	return false
}

func digitsOnly(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators are ignored
		default:
			return "", false
		}
	}
	return b.String(), true
}

// NormalizePhone canonicalizes user phone input to +998XXXXXXXXX form.
//
// Accepted shapes: a full international number (+998 plus nine digits), a
// bare nine-digit local number starting with a known operator prefix, and a
// twelve-digit number already carrying the 998 country code. Everything else
// yields ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	rest := raw
	hadPlus := strings.HasPrefix(raw, "+")
	if hadPlus {
		rest = raw[1:]
	}
	digits, ok := digitsOnly(rest)
	if !ok {
		return "", ErrInvalidPhone
	}

	switch {
	case hadPlus && len(digits) == 12 && strings.HasPrefix(digits, "998"):
		return "+" + digits, nil
	case !hadPlus && len(digits) == 12 && strings.HasPrefix(digits, "998"):
		return "+" + digits, nil
	case !hadPlus && len(digits) == 9 && isLocalPrefix(digits[0]):
		return "+998" + digits, nil
	}
	return "", ErrInvalidPhone
}

// NormalizeContact canonicalizes a transport-shared contact number. The
// transport already verified it belongs to the sender, so any country is
// accepted; only a missing leading "+" is attached.
func NormalizeContact(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	return "+" + raw
}
