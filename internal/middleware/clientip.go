package middleware

import (
	"net/http"
	"net/netip"

	"github.com/DukeRupert/plumbline/internal/handler"
)

// ClientIP resolves the originating client IP once per request and stores it
// for handler.ClientIP. Forwarding headers count only when the connection
// comes from one of the trusted proxy ranges; with none configured the
// connection's remote address is always used.
func ClientIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := handler.ResolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(handler.WithClientIP(r.Context(), ip)))
		})
	}
}
