package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/DukeRupert/plumbline/internal/handler"
	"github.com/stretchr/testify/assert"
)

func TestClientIP_Resolution(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"no proxies ignores forwarded header", nil, "203.0.113.9:5555", "198.51.100.7", "", "203.0.113.9"},
		{"untrusted peer ignores forwarded header", proxies, "203.0.113.9:5555", "198.51.100.7", "", "203.0.113.9"},
		{"untrusted peer ignores real ip", proxies, "203.0.113.9:5555", "", "198.51.100.7", "203.0.113.9"},
		{"trusted proxy forwards client", proxies, "10.0.0.2:443", "198.51.100.7", "", "198.51.100.7"},
		{"spoofed leftmost hop is skipped", proxies, "10.0.0.2:443", "1.2.3.4, 198.51.100.7, 10.0.0.5", "", "198.51.100.7"},
		{"trusted proxy with real ip", proxies, "10.0.0.2:443", "", "198.51.100.8", "198.51.100.8"},
		{"malformed hop falls back to peer", proxies, "10.0.0.2:443", "not-an-ip", "", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = handler.ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIP_RotatingForwardedForDoesNotEvadeRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := NewRateLimiter(ctx, 3, time.Minute)
	h := Stack(ClientIP(nil), RateLimit(limiter, "verify", testLogger()))(okHandler)

	var allowed int
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/portal/verify-account", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 3, allowed)
}
