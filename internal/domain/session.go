package domain

import "time"

const (
	// SchedulerSessionDuration is how long a session lives from mint or last refresh.
	SchedulerSessionDuration = 30 * time.Minute

	// SessionReapInterval is how often expired sessions are swept.
	SessionReapInterval = 5 * time.Minute

	// AccountScopeDuration is the default lifetime of the multi-account scope.
	AccountScopeDuration = 2 * time.Hour
)

// VerificationMethod records how a session's contact was verified.
type VerificationMethod string

const (
	VerificationMethodPhone VerificationMethod = "phone"
	VerificationMethodEmail VerificationMethod = "email"
)

// SchedulerSession is a post-verification authorization grant.
//
// VerifiedContactHash never leaves the server. The account scope
// (AvailableCustomerIDs, ScopeExpiresAt) is not covered by the token
// signature and expires on its own schedule.
type SchedulerSession struct {
	ID                   string             `json:"id"`
	VerifiedContactHash  string             `json:"verified_contact_hash"`
	VerificationMethod   VerificationMethod `json:"verification_method"`
	VerifiedAt           time.Time          `json:"verified_at"`
	CustomerID           *int64             `json:"customer_id,omitempty"`
	ExpiresAt            time.Time          `json:"expires_at"`
	AvailableCustomerIDs []int64            `json:"available_customer_ids,omitempty"`
	ScopeExpiresAt       time.Time          `json:"scope_expires_at"`
}

// IsExpiredAt reports whether the session is past its expiry at now.
func (s *SchedulerSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthorizedCustomerIDs returns the customer ids this session may act for.
// Once the account scope lapses only the active customer remains.
func (s *SchedulerSession) AuthorizedCustomerIDs(now time.Time) []int64 {
	if len(s.AvailableCustomerIDs) > 0 && !now.After(s.ScopeExpiresAt) {
		ids := make([]int64, len(s.AvailableCustomerIDs))
		copy(ids, s.AvailableCustomerIDs)
		return ids
	}
	if s.CustomerID != nil {
		return []int64{*s.CustomerID}
	}
	return nil
}

// SessionInfo is the non-sensitive session metadata returned to clients.
type SessionInfo struct {
	Method     VerificationMethod `json:"verificationMethod"`
	VerifiedAt time.Time          `json:"verifiedAt"`
	ExpiresAt  time.Time          `json:"expiresAt"`
	CustomerID *int64             `json:"customerId"`
}
