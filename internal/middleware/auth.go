// Package middleware contains HTTP middleware.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler
// and are composed per route in cmd/server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/handler"
	"github.com/DukeRupert/plumbline/internal/session"
)

// SessionValidator resolves a portal session token. A nil session with a nil
// error means the token is not valid.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*domain.SchedulerSession, error)
}

// AdminAuthenticator resolves a staff session token.
type AdminAuthenticator interface {
	GetBySessionToken(ctx context.Context, token string) (*domain.AdminUser, error)
}

// =============================================================================
// Portal and scheduler sessions
// =============================================================================

// SessionMiddleware loads verified customer sessions into the request context.
type SessionMiddleware struct {
	sessions SessionValidator
	logger   *slog.Logger
	isSecure bool
}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware(sessions SessionValidator, logger *slog.Logger, isSecure bool) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, logger: logger, isSecure: isSecure}
}

// WithSession loads the session named by the Bearer header or cookie, if
// any, and always continues. A stale cookie is cleared.
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		s, err := m.sessions.Validate(r.Context(), token)
		if err != nil {
			// The store is unreachable. Routes that do not need a session
			// still run; RequireSession turns this into a server error.
			m.logger.Error("failed to validate session", "error", err)
			next.ServeHTTP(w, r.WithContext(auth.SetLookupError(r.Context(), err)))
			return
		}
		if s == nil {
			if _, cerr := r.Cookie(session.CookieName); cerr == nil {
				session.ClearCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), s, token)))
	})
}

// RequireSession rejects requests without a valid session with 401, or with
// 500 when the session store could not be read. Use it after WithSession.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetSessionFromRequest(r) == nil {
			if err := auth.LookupError(r.Context()); err != nil {
				handler.ErrorResponse(w, r, m.logger, domain.Internal(err, "SessionMiddleware.RequireSession", "session store unavailable"))
				return
			}
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Staff sessions
// =============================================================================

// AdminAuthMiddleware loads staff users from the admin cookie.
type AdminAuthMiddleware struct {
	admins   AdminAuthenticator
	logger   *slog.Logger
	isSecure bool
}

// NewAdminAuthMiddleware creates a new AdminAuthMiddleware.
func NewAdminAuthMiddleware(admins AdminAuthenticator, logger *slog.Logger, isSecure bool) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{admins: admins, logger: logger, isSecure: isSecure}
}

// WithAdmin loads the staff user when the admin cookie is valid.
func (m *AdminAuthMiddleware) WithAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.AdminCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.admins.GetBySessionToken(r.Context(), cookie.Value)
		if err != nil {
			if domain.ErrorCode(err) == domain.EUNAUTHORIZED {
				session.ClearAdminCookie(w, m.isSecure)
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Error("failed to load admin session", "error", err)
			next.ServeHTTP(w, r.WithContext(auth.SetLookupError(r.Context(), err)))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetAdmin(r.Context(), user)))
	})
}

// RequireAdmin rejects requests without a staff user with 401, or with 500
// when the staff session could not be loaded. Use it after WithAdmin.
func (m *AdminAuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetAdmin(r.Context()) == nil {
			if err := auth.LookupError(r.Context()); err != nil {
				handler.ErrorResponse(w, r, m.logger, domain.Internal(err, "AdminAuthMiddleware.RequireAdmin", "staff session store unavailable"))
				return
			}
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stack composes middlewares so the first one listed runs first.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
