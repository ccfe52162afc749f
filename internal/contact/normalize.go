// Package contact canonicalizes phone numbers and email addresses into the
// comparable keys used for challenge storage, CRM lookups and session hashes.
//
// The same functions run when a challenge is written and when it is looked
// up. Any divergence between the two makes lookups miss silently.
package contact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// NormalizePhone strips everything but digits and drops a leading US country
// code. The result must be exactly 10 digits.
func NormalizePhone(raw string) (string, error) {
	const op = "contact.NormalizePhone"

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", domain.NewValidationError(op, "phone", "Phone number must have 10 digits")
	}
	return digits, nil
}

// NormalizeEmail trims and lowercases an address and checks it has the
// basic local@domain.tld shape.
func NormalizeEmail(raw string) (string, error) {
	const op = "contact.NormalizeEmail"

	email := strings.ToLower(strings.TrimSpace(raw))
	if !looksLikeEmail(email) {
		return "", domain.NewValidationError(op, "email", "Enter a valid email address")
	}
	return email, nil
}

// Normalize dispatches on kind.
func Normalize(kind domain.ContactKind, raw string) (string, error) {
	switch kind {
	case domain.ContactKindPhone:
		return NormalizePhone(raw)
	case domain.ContactKindEmail:
		return NormalizeEmail(raw)
	default:
		return "", domain.NewValidationError("contact.Normalize", "lookupType", fmt.Sprintf("Unknown contact type %q", kind))
	}
}

func looksLikeEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	local, host, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.Contains(host, "@") {
		return false
	}
	dot := strings.LastIndex(host, ".")
	if dot <= 0 || dot == len(host)-1 {
		return false
	}
	return !strings.Contains(host, "..")
}

// Hash returns the SHA-256 hex digest of the lowercased contact value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(value)))
	return hex.EncodeToString(sum[:])
}

// MaskPhone hides all but the last four digits: (***) ***-0100.
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	return "(***) ***-" + phone[len(phone)-4:]
}

// MaskEmail keeps the first character of the local part: j***@example.com.
func MaskEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(local)
	return string(first) + "***@" + host
}

// Mask picks the masking function for kind.
func Mask(kind domain.ContactKind, value string) string {
	if kind == domain.ContactKindPhone {
		return MaskPhone(value)
	}
	return MaskEmail(value)
}
