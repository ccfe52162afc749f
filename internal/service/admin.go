package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for staff password hashes. It is not
	// configurable at runtime.
	BcryptCost = 12

	// MinPasswordLength is the minimum staff password length.
	MinPasswordLength = 12

	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
)

// dummyHash is compared against when the email is unknown so both failure
// paths take the same time.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// =============================================================================
// Interface Definition
// =============================================================================

// AdminService authenticates back-office staff.
type AdminService interface {
	// Login checks the credentials and opens a session.
	// Returns domain.EUNAUTHORIZED for any credential failure.
	Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error)

	// Logout ends the session. Unknown tokens are ignored.
	Logout(ctx context.Context, token string) error

	// GetBySessionToken returns the staff member behind a live session.
	// Returns domain.EUNAUTHORIZED for unknown or expired tokens.
	GetBySessionToken(ctx context.Context, token string) (*domain.AdminUser, error)

	// Bootstrap creates the first staff account when none exist yet.
	// It reports whether an account was created.
	Bootstrap(ctx context.Context, email, name, password string) (bool, error)

	// PurgeExpiredSessions removes expired staff sessions.
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// AdminQueries is the subset of repository.Queries the admin service needs.
type AdminQueries interface {
	CountAdminUsers(ctx context.Context) (int64, error)
	CreateAdminUser(ctx context.Context, arg repository.CreateAdminUserParams) (repository.AdminUser, error)
	GetAdminUserByEmail(ctx context.Context, email string) (repository.AdminUser, error)
	GetAdminUserBySessionToken(ctx context.Context, tokenHash string) (repository.AdminUser, error)
	CreateAdminSession(ctx context.Context, arg repository.CreateAdminSessionParams) (repository.AdminSession, error)
	DeleteAdminSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredAdminSessions(ctx context.Context) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type adminService struct {
	queries AdminQueries
	logger  *slog.Logger
	cost    int
	now     func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(queries AdminQueries, logger *slog.Logger) AdminService {
	return &adminService{
		queries: queries,
		logger:  logger,
		cost:    BcryptCost,
		now:     time.Now,
	}
}

func (s *adminService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
	const op = "AdminService.Login"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	row, err := s.queries.GetAdminUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(params.Password))
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch admin user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(params.Password)); err != nil {
		s.logger.Warn("admin login failed", "email", email, "ip", params.IPAddress)
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateAdminToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}
	expiresAt := s.now().Add(domain.AdminSessionDuration)

	if _, err := s.queries.CreateAdminSession(ctx, repository.CreateAdminSessionParams{
		AdminUserID: row.ID,
		TokenHash:   hashAdminToken(token),
		UserAgent:   nullString(params.UserAgent),
		IpAddress:   inetFromIP(params.IPAddress),
		ExpiresAt:   expiresAt,
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to create admin session")
	}

	s.logger.Info("admin logged in", "admin_id", row.ID)

	return &domain.LoginResult{
		User:      adminToDomain(row),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *adminService) Logout(ctx context.Context, token string) error {
	if len(token) != domain.AdminTokenBytes*2 {
		return nil
	}
	if err := s.queries.DeleteAdminSessionByTokenHash(ctx, hashAdminToken(token)); err != nil {
		s.logger.Warn("failed to delete admin session", "error", err)
	}
	return nil
}

func (s *adminService) GetBySessionToken(ctx context.Context, token string) (*domain.AdminUser, error) {
	const op = "AdminService.GetBySessionToken"

	if len(token) != domain.AdminTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid session")
	}
	row, err := s.queries.GetAdminUserBySessionToken(ctx, hashAdminToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Unauthorized(op, "Invalid session")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load admin session")
	}
	return adminToDomain(row), nil
}

func (s *adminService) Bootstrap(ctx context.Context, email, name, password string) (bool, error) {
	const op = "AdminService.Bootstrap"

	n, err := s.queries.CountAdminUsers(ctx)
	if err != nil {
		return false, domain.Internal(err, op, "failed to count admin users")
	}
	if n > 0 {
		return false, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return false, domain.NewValidationError(op, "email", "A valid email is required")
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, domain.Internal(err, op, "failed to hash password")
	}
	row, err := s.queries.CreateAdminUser(ctx, repository.CreateAdminUserParams{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	})
	if err != nil {
		return false, domain.Internal(err, op, "failed to create admin user")
	}

	s.logger.Info("created initial admin user", "admin_id", row.ID, "email", email)
	return true, nil
}

func (s *adminService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredAdminSessions(ctx)
	if err != nil {
		return 0, domain.Internal(err, "AdminService.PurgeExpiredSessions", "failed to delete expired admin sessions")
	}
	return n, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func generateAdminToken() (string, error) {
	b := make([]byte, domain.AdminTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashAdminToken hashes a session token for storage. Tokens are random, so
// a plain SHA-256 is enough.
func hashAdminToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validatePassword(password string) error {
	const op = "AdminService.validatePassword"
	if len(password) < MinPasswordLength {
		return domain.NewValidationError(op, "password", "Password must be at least 12 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.NewValidationError(op, "password", "Password must be 72 characters or less")
	}
	return nil
}

func adminToDomain(u repository.AdminUser) *domain.AdminUser {
	return &domain.AdminUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
