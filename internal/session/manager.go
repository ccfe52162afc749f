package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/metrics"
)

const (
	// MinSecretLength is the minimum HMAC key size in bytes.
	MinSecretLength = 32

	// sessionIDBytes is the entropy of a session id before hex encoding.
	sessionIDBytes = 32
)

// Token is a signed session token plus the metadata safe to show a client.
type Token struct {
	Value      string                    `json:"token"`
	ExpiresAt  time.Time                 `json:"expiresAt"`
	Method     domain.VerificationMethod `json:"verificationMethod"`
	VerifiedAt time.Time                 `json:"verifiedAt"`
	CustomerID *int64                    `json:"customerId"`
}

// MintParams describes a freshly verified contact.
type MintParams struct {
	Contact              string
	Method               domain.VerificationMethod
	CustomerID           *int64
	AvailableCustomerIDs []int64
}

// Manager mints, validates, refreshes and invalidates sessions.
//
// A token is "sessionId:signature" where the signature is
// hex(HMAC-SHA256(secret, sessionId:contactHash:expiresAtUnixMillis)).
// The record itself lives in the Store, so a refresh that moves ExpiresAt
// invalidates every signature issued for the previous expiry.
type Manager struct {
	store    Store
	secret   []byte
	ttl      time.Duration
	scopeTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTTL overrides the session lifetime.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithScopeTTL overrides how long the multi-account scope stays usable.
func WithScopeTTL(d time.Duration) Option {
	return func(m *Manager) { m.scopeTTL = d }
}

// NewManager creates a Manager. secret must be at least MinSecretLength bytes.
func NewManager(store Store, secret []byte, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}

	m := &Manager{
		store:    store,
		secret:   append([]byte(nil), secret...),
		ttl:      domain.SchedulerSessionDuration,
		scopeTTL: domain.AccountScopeDuration,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Mint creates and stores a new session for a verified contact.
func (m *Manager) Mint(ctx context.Context, params MintParams) (*Token, error) {
	if strings.TrimSpace(params.Contact) == "" {
		return nil, errors.New("mint session: contact is required")
	}

	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}

	now := m.now()
	s := &domain.SchedulerSession{
		ID:                  id,
		VerifiedContactHash: contact.Hash(params.Contact),
		VerificationMethod:  params.Method,
		VerifiedAt:          now,
		CustomerID:          params.CustomerID,
		ExpiresAt:           now.Add(m.ttl),
	}
	if len(params.AvailableCustomerIDs) > 0 {
		s.AvailableCustomerIDs = append([]int64(nil), params.AvailableCustomerIDs...)
		s.ScopeExpiresAt = now.Add(m.scopeTTL)
	}

	if err := m.store.Set(ctx, s); err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}

	metrics.SessionEvent("minted")
	m.logger.Info("session minted",
		"method", params.Method,
		"customer_id", params.CustomerID,
		"accounts", len(s.AvailableCustomerIDs),
	)
	return m.token(s), nil
}

// Validate returns the live session for token, or nil if the token is
// malformed, unknown, expired or carries a bad signature. Expired sessions
// are evicted. A non-nil error means the store itself failed.
func (m *Manager) Validate(ctx context.Context, token string) (*domain.SchedulerSession, error) {
	id, sig, ok := splitToken(token)
	if !ok {
		return nil, nil
	}

	s, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}

	if s.IsExpiredAt(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to evict expired session", "error", err)
		}
		metrics.SessionEvent("expired")
		return nil, nil
	}

	expected := m.sign(s)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		metrics.SessionEvent("rejected")
		return nil, nil
	}
	return s, nil
}

// Refresh extends a valid session to now plus the session lifetime and
// returns the re-signed token. The previous token stops verifying.
// Returns nil when the token is not valid.
func (m *Manager) Refresh(ctx context.Context, token string) (*Token, error) {
	s, err := m.Validate(ctx, token)
	if err != nil || s == nil {
		return nil, err
	}

	s.ExpiresAt = m.now().Add(m.ttl)
	if err := m.store.Set(ctx, s); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	metrics.SessionEvent("refreshed")
	return m.token(s), nil
}

// Invalidate deletes the session named by token. It reports whether a
// session existed. Malformed tokens report false.
func (m *Manager) Invalidate(ctx context.Context, token string) (bool, error) {
	id, _, ok := splitToken(token)
	if !ok {
		return false, nil
	}

	_, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	metrics.SessionEvent("invalidated")
	return true, nil
}

// SwitchCustomer makes customerID the active customer of the session.
// It must be within the session's authorized set.
func (m *Manager) SwitchCustomer(ctx context.Context, token string, customerID int64) (*domain.SchedulerSession, error) {
	const op = "Session.SwitchCustomer"

	s, err := m.Validate(ctx, token)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load session")
	}
	if s == nil {
		return nil, domain.Unauthorized(op, "Your session has expired. Please verify again.")
	}

	if !slices.Contains(s.AuthorizedCustomerIDs(m.now()), customerID) {
		metrics.OwnershipDenied("customer")
		m.logger.Warn("account switch denied",
			"requested_customer_id", customerID,
			"authorized_customer_ids", s.AuthorizedCustomerIDs(m.now()),
		)
		return nil, domain.Forbidden(op, "You are not authorized to access this resource.")
	}

	s.CustomerID = &customerID
	if err := m.store.Set(ctx, s); err != nil {
		return nil, domain.Internal(err, op, "failed to save session")
	}
	return s, nil
}

// Info returns the metadata of s that may be shown to a client.
func Info(s *domain.SchedulerSession) domain.SessionInfo {
	return domain.SessionInfo{
		Method:     s.VerificationMethod,
		VerifiedAt: s.VerifiedAt,
		ExpiresAt:  s.ExpiresAt,
		CustomerID: s.CustomerID,
	}
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// =============================================================================
// Reaper
// =============================================================================

// Sweep removes expired sessions once.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.SweepExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	metrics.SessionsReaped(n)
	return n, nil
}

// StartReaper sweeps expired sessions every interval until ctx is
// cancelled. The returned channel is closed once the reaper has stopped.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("session reaper stopping")
				return
			case <-ticker.C:
				n, err := m.Sweep(ctx)
				if err != nil {
					m.logger.Error("session sweep failed", "error", err)
					continue
				}
				if n > 0 {
					m.logger.Info("reaped expired sessions", "count", n)
				}
			}
		}
	}()
	return done
}

// =============================================================================
// Helpers
// =============================================================================

func (m *Manager) token(s *domain.SchedulerSession) *Token {
	return &Token{
		Value:      s.ID + ":" + m.sign(s),
		ExpiresAt:  s.ExpiresAt,
		Method:     s.VerificationMethod,
		VerifiedAt: s.VerifiedAt,
		CustomerID: s.CustomerID,
	}
}

func (m *Manager) sign(s *domain.SchedulerSession) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s:%s:%d", s.ID, s.VerifiedContactHash, s.ExpiresAt.UnixMilli())
	return hex.EncodeToString(mac.Sum(nil))
}

// splitToken parses "sessionId:signature". Anything else is malformed.
func splitToken(token string) (id, sig string, ok bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
