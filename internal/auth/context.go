// Package auth carries request identity through context and enforces
// customer ownership of CRM entities.
//
// This package is imported by both middleware and handler packages, so it
// must not depend on either.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionContextKey contextKey = "scheduler_session"
	tokenContextKey   contextKey = "session_token"
	adminContextKey   contextKey = "admin_user"
	lookupErrKey      contextKey = "identity_lookup_error"
)

// GetSession retrieves the validated customer session from the context.
//
// Returns nil if the request carries no valid session.
func GetSession(ctx context.Context) *domain.SchedulerSession {
	s, ok := ctx.Value(sessionContextKey).(*domain.SchedulerSession)
	if !ok {
		return nil
	}
	return s
}

// GetSessionFromRequest is GetSession for a request.
func GetSessionFromRequest(r *http.Request) *domain.SchedulerSession {
	return GetSession(r.Context())
}

// SetSession stores a validated session and the token it came from.
func SetSession(ctx context.Context, s *domain.SchedulerSession, token string) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, s)
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken returns the raw session token of the request, if any.
func GetToken(ctx context.Context) string {
	t, _ := ctx.Value(tokenContextKey).(string)
	return t
}

// GetAdmin retrieves the authenticated staff user from the context.
func GetAdmin(ctx context.Context) *domain.AdminUser {
	u, ok := ctx.Value(adminContextKey).(*domain.AdminUser)
	if !ok {
		return nil
	}
	return u
}

// SetAdmin stores a staff user in the context.
func SetAdmin(ctx context.Context, u *domain.AdminUser) context.Context {
	return context.WithValue(ctx, adminContextKey, u)
}

// SetLookupError records that the session or staff store could not be read
// for this request, so the request's identity is unknown rather than absent.
func SetLookupError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, lookupErrKey, err)
}

// LookupError returns the error recorded by SetLookupError, if any.
func LookupError(ctx context.Context) error {
	err, _ := ctx.Value(lookupErrKey).(error)
	return err
}
