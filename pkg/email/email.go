// Package email normalizes and validates account email addresses.
package email

import (
	"net/mail"
	"strings"
)

// MaxLength is the longest address accepted (RFC 5321 path limit).
const MaxLength = 254

// Normalize trims whitespace and lowercases the domain part.
// The local part keeps its case; some providers treat it as significant.
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		return address
	}
	return address[:at] + "@" + strings.ToLower(address[at+1:])
}

// IsValid reports whether address is a bare addr-spec with a dotted domain.
// Display names ("Ana <ana@example.com>") are rejected.
func IsValid(address string) bool {
	if address == "" || len(address) > MaxLength {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address || parsed.Name != "" {
		return false
	}
	domain := address[strings.LastIndexByte(address, '@')+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
