// Package domain contains core business types and interfaces.
//
// This file defines the verification challenge types used by the portal and
// scheduler identity flows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Verification Configuration Constants
// =============================================================================

const (
	// SMSCodeDuration is how long a 6-digit SMS code remains valid.
	SMSCodeDuration = 15 * time.Minute

	// EmailLinkDuration is how long an emailed magic link remains valid.
	EmailLinkDuration = 60 * time.Minute

	// MaxVerificationAttempts is the attempt ceiling. Reaching it deletes the challenge.
	MaxVerificationAttempts = 5

	// SMSCodeLength is the number of digits in an SMS code.
	SMSCodeLength = 6
)

// VerificationType is the delivery channel of a challenge.
type VerificationType string

const (
	VerificationTypeSMS   VerificationType = "sms"
	VerificationTypeEmail VerificationType = "email"
)

// IsValid returns true if the type is a known channel.
func (t VerificationType) IsValid() bool {
	return t == VerificationTypeSMS || t == VerificationTypeEmail
}

// ContactKind returns the kind of contact value this channel delivers to.
func (t VerificationType) ContactKind() ContactKind {
	if t == VerificationTypeSMS {
		return ContactKindPhone
	}
	return ContactKindEmail
}

// Duration returns the lifetime of a challenge on this channel.
func (t VerificationType) Duration() time.Duration {
	if t == VerificationTypeSMS {
		return SMSCodeDuration
	}
	return EmailLinkDuration
}

// ContactKind distinguishes phone numbers from email addresses.
type ContactKind string

const (
	ContactKindPhone ContactKind = "phone"
	ContactKindEmail ContactKind = "email"
)

// ParseContactKind accepts the lookupType values clients send.
func ParseContactKind(s string) (ContactKind, bool) {
	switch s {
	case "phone", "sms", "mobile":
		return ContactKindPhone, true
	case "email":
		return ContactKindEmail, true
	}
	return "", false
}

// VerificationType returns the channel used to verify this kind of contact.
func (k ContactKind) VerificationType() VerificationType {
	if k == ContactKindPhone {
		return VerificationTypeSMS
	}
	return VerificationTypeEmail
}

// =============================================================================
// Verification Challenge
// =============================================================================

// VerificationChallenge is one pending identity check.
//
// Rows are never updated after creation except for Attempts. A challenge is
// deleted on success, when found expired at check time, or once Attempts
// reaches MaxVerificationAttempts.
type VerificationChallenge struct {
	ID               uuid.UUID
	CustomerIDs      []int64
	ContactValue     string // normalized
	VerificationType VerificationType
	Code             string
	Attempts         int
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// IsExpiredAt reports whether the challenge is past its expiry at now.
func (c *VerificationChallenge) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsExhausted reports whether the attempt ceiling has been reached.
func (c *VerificationChallenge) IsExhausted() bool {
	return c.Attempts >= MaxVerificationAttempts
}

// RemainingAttempts returns how many wrong codes may still be submitted.
func (c *VerificationChallenge) RemainingAttempts() int {
	if c.Attempts >= MaxVerificationAttempts {
		return 0
	}
	return MaxVerificationAttempts - c.Attempts
}

// =============================================================================
// Service Parameters and Results
// =============================================================================

// CreateChallengeParams contains parameters for issuing a challenge.
type CreateChallengeParams struct {
	CustomerIDs  []int64
	ContactValue string // raw or normalized; normalized again before persisting
	Type         VerificationType
	RequestedIP  string // optional, recorded for audit
}

// IssuedChallenge is returned to the caller for dispatch over SMS or email.
type IssuedChallenge struct {
	ID           uuid.UUID
	Code         string
	ContactValue string
	Type         VerificationType
	ExpiresAt    time.Time
}

// ChallengeResult is the outcome of a successful check.
type ChallengeResult struct {
	CustomerIDs  []int64
	ContactValue string
	Type         VerificationType
}

// ChallengeStats summarizes live challenges for the admin API.
type ChallengeStats struct {
	Pending      int64 `json:"pending"`
	PendingSMS   int64 `json:"pending_sms"`
	PendingEmail int64 `json:"pending_email"`
	Expired      int64 `json:"expired"`
}
