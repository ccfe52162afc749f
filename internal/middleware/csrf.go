package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/plumbline/internal/csrf"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/handler"
)

// CSRF rejects mutating requests whose X-CSRF-Token header does not match
// the CSRF cookie. Safe methods pass through.
func CSRF(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !csrf.ValidateRequest(r) {
				logger.Warn("csrf validation failed", "path", r.URL.Path, "ip", handler.ClientIP(r))
				handler.ErrorResponse(w, r, logger, domain.Forbidden("middleware.CSRF", "Missing or invalid CSRF token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
