// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Error translation (database and collaborator errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/metrics"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// VerificationService issues and checks one-time identity challenges.
type VerificationService interface {
	// CreateChallenge normalizes the contact, replaces any live challenge for
	// it, and persists a new one. The returned code must be dispatched by the
	// caller over SMS or email.
	// Returns domain.EINVALID if the contact does not normalize.
	CreateChallenge(ctx context.Context, params domain.CreateChallengeParams) (*domain.IssuedChallenge, error)

	// CheckChallenge consumes a challenge.
	// Returns domain.ENOTFOUND if no challenge exists for the contact,
	// domain.ETOOMANYATTEMPTS once the attempt ceiling is reached,
	// domain.EEXPIRED if the challenge outlived its expiry, and
	// domain.EMISMATCH (with remaining attempts) for a wrong code.
	CheckChallenge(ctx context.Context, kind domain.ContactKind, contactValue, code string) (*domain.ChallengeResult, error)

	// PurgeExpired deletes challenges past their expiry.
	PurgeExpired(ctx context.Context) (int64, error)

	// Stats counts live and expired challenges.
	Stats(ctx context.Context) (*domain.ChallengeStats, error)
}

// ChallengeQueries is the subset of repository.Queries the verification
// store needs.
type ChallengeQueries interface {
	CreateVerificationChallenge(ctx context.Context, arg repository.CreateVerificationChallengeParams) (repository.VerificationChallenge, error)
	GetLatestVerificationChallenge(ctx context.Context, arg repository.GetLatestVerificationChallengeParams) (repository.VerificationChallenge, error)
	IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int32, error)
	DeleteVerificationChallenge(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteVerificationChallengesByContact(ctx context.Context, arg repository.DeleteVerificationChallengesByContactParams) (int64, error)
	DeleteExpiredVerificationChallenges(ctx context.Context, now time.Time) (int64, error)
	CountVerificationChallenges(ctx context.Context, now time.Time) (repository.CountVerificationChallengesRow, error)
}

// =============================================================================
// Implementation
// =============================================================================

type verificationService struct {
	queries ChallengeQueries
	logger  *slog.Logger
	now     func() time.Time
}

// VerificationOption customizes a VerificationService.
type VerificationOption func(*verificationService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) VerificationOption {
	return func(s *verificationService) {
		s.now = now
	}
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(queries ChallengeQueries, logger *slog.Logger, opts ...VerificationOption) VerificationService {
	s := &verificationService{
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge persists a new challenge and returns its code.
func (s *verificationService) CreateChallenge(ctx context.Context, params domain.CreateChallengeParams) (*domain.IssuedChallenge, error) {
	const op = "VerificationService.CreateChallenge"

	if !params.Type.IsValid() {
		return nil, domain.NewValidationError(op, "verificationType", "Unknown verification type")
	}
	if len(params.CustomerIDs) == 0 {
		return nil, domain.Invalid(op, "A challenge must unlock at least one customer")
	}

	contactValue, err := contact.Normalize(params.Type.ContactKind(), params.ContactValue)
	if err != nil {
		return nil, err
	}

	code, err := generateCode(params.Type)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate verification code")
	}

	// One live challenge per contact; a fresh request supersedes older codes.
	if _, err := s.queries.DeleteVerificationChallengesByContact(ctx, repository.DeleteVerificationChallengesByContactParams{
		ContactValue:     contactValue,
		VerificationType: string(params.Type),
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to clear previous challenges")
	}

	expiresAt := s.now().Add(params.Type.Duration())
	row, err := s.queries.CreateVerificationChallenge(ctx, repository.CreateVerificationChallengeParams{
		CustomerIds:      params.CustomerIDs,
		ContactValue:     contactValue,
		VerificationType: string(params.Type),
		Code:             code,
		ExpiresAt:        expiresAt,
		RequestedIp:      inetFromIP(params.RequestedIP),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store challenge")
	}

	metrics.ChallengeIssued(string(params.Type))
	s.logger.Info("verification challenge issued",
		"challenge_id", row.ID,
		"type", params.Type,
		"contact", contact.Mask(params.Type.ContactKind(), contactValue),
		"customer_count", len(params.CustomerIDs),
	)

	return &domain.IssuedChallenge{
		ID:           row.ID,
		Code:         code,
		ContactValue: contactValue,
		Type:         params.Type,
		ExpiresAt:    row.ExpiresAt,
	}, nil
}

// CheckChallenge validates a supplied code against the latest challenge.
func (s *verificationService) CheckChallenge(ctx context.Context, kind domain.ContactKind, contactValue, code string) (*domain.ChallengeResult, error) {
	const op = "VerificationService.CheckChallenge"

	normalized, err := contact.Normalize(kind, contactValue)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError(op, "code", "Code is required")
	}

	vType := kind.VerificationType()
	row, err := s.queries.GetLatestVerificationChallenge(ctx, repository.GetLatestVerificationChallengeParams{
		ContactValue:     normalized,
		VerificationType: string(vType),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.ChallengeChecked(string(vType), "not_found")
			return nil, domain.Errorf(domain.ENOTFOUND, op, "No pending verification for this contact. Please request a new code.")
		}
		return nil, domain.Internal(err, op, "failed to load challenge")
	}
	challenge := repoChallengeToDomain(row)
	logger := s.logger.With("challenge_id", challenge.ID, "type", vType)

	if challenge.IsExhausted() {
		s.deleteChallenge(ctx, logger, challenge.ID)
		metrics.ChallengeChecked(string(vType), "too_many_attempts")
		return nil, domain.TooManyAttempts(op)
	}

	if challenge.IsExpiredAt(s.now()) {
		s.deleteChallenge(ctx, logger, challenge.ID)
		metrics.ChallengeChecked(string(vType), "expired")
		return nil, domain.Expired(op)
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(challenge.Code)) != 1 {
		attempts, err := s.queries.IncrementVerificationAttempts(ctx, challenge.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Consumed or deleted by a concurrent request.
				return nil, domain.Errorf(domain.ENOTFOUND, op, "No pending verification for this contact. Please request a new code.")
			}
			return nil, domain.Internal(err, op, "failed to record attempt")
		}
		challenge.Attempts = int(attempts)

		if challenge.IsExhausted() {
			s.deleteChallenge(ctx, logger, challenge.ID)
			logger.Warn("verification attempt ceiling reached")
			metrics.ChallengeChecked(string(vType), "too_many_attempts")
			return nil, domain.TooManyAttempts(op)
		}

		metrics.ChallengeChecked(string(vType), "mismatch")
		return nil, domain.Mismatch(op, challenge.RemainingAttempts())
	}

	// Codes are single use. Only the request whose delete removed the row
	// redeems it.
	n, err := s.queries.DeleteVerificationChallenge(ctx, challenge.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to consume challenge")
	}
	if n == 0 {
		metrics.ChallengeChecked(string(vType), "not_found")
		logger.Warn("verification challenge already consumed")
		return nil, domain.Errorf(domain.ENOTFOUND, op, "No pending verification for this contact. Please request a new code.")
	}

	metrics.ChallengeChecked(string(vType), "success")
	logger.Info("verification challenge consumed")

	return &domain.ChallengeResult{
		CustomerIDs:  challenge.CustomerIDs,
		ContactValue: challenge.ContactValue,
		Type:         challenge.VerificationType,
	}, nil
}

// PurgeExpired deletes challenges whose expiry has passed.
func (s *verificationService) PurgeExpired(ctx context.Context) (int64, error) {
	const op = "VerificationService.PurgeExpired"

	n, err := s.queries.DeleteExpiredVerificationChallenges(ctx, s.now())
	if err != nil {
		return 0, domain.Internal(err, op, "failed to purge expired challenges")
	}
	if n > 0 {
		s.logger.Info("purged expired verification challenges", "count", n)
	}
	return n, nil
}

// Stats counts challenges for the admin dashboard.
func (s *verificationService) Stats(ctx context.Context) (*domain.ChallengeStats, error) {
	const op = "VerificationService.Stats"

	row, err := s.queries.CountVerificationChallenges(ctx, s.now())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count challenges")
	}
	return &domain.ChallengeStats{
		Pending:      row.Pending,
		PendingSMS:   row.PendingSms,
		PendingEmail: row.PendingEmail,
		Expired:      row.Expired,
	}, nil
}

// deleteChallenge removes a terminal challenge. A failure here is logged but
// does not change the outcome reported to the caller.
func (s *verificationService) deleteChallenge(ctx context.Context, logger *slog.Logger, id uuid.UUID) {
	if _, err := s.queries.DeleteVerificationChallenge(ctx, id); err != nil {
		logger.Error("failed to delete verification challenge", "error", err)
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateCode returns a zero-padded 6-digit code for SMS or a UUID for
// email magic links.
func generateCode(t domain.VerificationType) (string, error) {
	if t == domain.VerificationTypeEmail {
		return uuid.NewString(), nil
	}
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%0*d", domain.SMSCodeLength, n.Int64()), nil
}

func repoChallengeToDomain(c repository.VerificationChallenge) *domain.VerificationChallenge {
	return &domain.VerificationChallenge{
		ID:               c.ID,
		CustomerIDs:      c.CustomerIds,
		ContactValue:     c.ContactValue,
		VerificationType: domain.VerificationType(c.VerificationType),
		Code:             c.Code,
		Attempts:         int(c.Attempts),
		ExpiresAt:        c.ExpiresAt,
		CreatedAt:        c.CreatedAt,
	}
}
