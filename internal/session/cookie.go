package session

import (
	"net/http"
	"strings"
	"time"
)

// SetCookie sets the portal session cookie. Its lifetime follows the token's
// expiry so a refresh extends both.
func SetCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 || maxAge > CookieMaxAge {
		maxAge = CookieMaxAge
	}
	setCookie(w, CookieName, token, maxAge, secure)
}

// ClearCookie deletes the portal session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	setCookie(w, CookieName, "", -1, secure)
}

// SetAdminCookie sets the staff session cookie.
func SetAdminCookie(w http.ResponseWriter, token string, secure bool) {
	setCookie(w, AdminCookieName, token, AdminCookieMaxAge, secure)
}

// ClearAdminCookie deletes the staff session cookie.
func ClearAdminCookie(w http.ResponseWriter, secure bool) {
	setCookie(w, AdminCookieName, "", -1, secure)
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest reads the session token from an "Authorization: Bearer"
// header, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
