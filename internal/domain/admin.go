package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// AdminSessionDuration is how long a staff login lasts.
	AdminSessionDuration = 12 * time.Hour

	// AdminTokenBytes is the number of random bytes in an admin session token.
	AdminTokenBytes = 32
)

// AdminUser is a staff member with access to the back-office API.
type AdminUser struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string // Never expose this in API responses
	CreatedAt    time.Time
}

// LoginParams contains parameters for staff login.
type LoginParams struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult is returned after a successful staff login.
type LoginResult struct {
	User      *AdminUser
	Token     string // raw token for the cookie, only its hash is stored
	ExpiresAt time.Time
}
