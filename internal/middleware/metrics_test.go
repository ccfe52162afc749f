package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		header     string
		wantStatus int
	}{
		{name: "valid", user: "prom", pass: "scrape-secret", setAuth: true, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong user", user: "admin", pass: "scrape-secret", setAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "wrong password", user: "prom", pass: "nope", setAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "malformed", header: "Basic !!!notbase64", wantStatus: http.StatusUnauthorized},
		{name: "bearer scheme", header: "Bearer scrape-secret", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMetricsAuthMiddleware("prom", "scrape-secret", testLogger()).Handler(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMetricsAuthMiddleware_DisabledWithoutCredentials(t *testing.T) {
	h := NewMetricsAuthMiddleware("", "", testLogger()).Handler(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
