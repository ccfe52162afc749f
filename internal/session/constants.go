// Package session mints and validates the short-lived signed sessions that
// gate post-verification portal and scheduler actions.
package session

const (
	// CookieName is the name of the cookie that carries the session token.
	CookieName = "plumbline_session"

	// AdminCookieName carries the staff session token for the admin API.
	AdminCookieName = "plumbline_admin"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge matches domain.SchedulerSessionDuration (30 minutes).
	// Refresh re-issues the cookie with a new max age.
	CookieMaxAge = 30 * 60

	// AdminCookieMaxAge matches domain.AdminSessionDuration (12 hours).
	AdminCookieMaxAge = 12 * 60 * 60
)
