package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/DukeRupert/plumbline/internal/handler"
)

// Limiter decides whether one more request for key fits in the window.
// When it does not, retryAfter says how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// =============================================================================
// In-memory Limiter
// =============================================================================

// RateLimiter tracks request counts per key with a fixed window. Counts are
// per process, so it suits a single instance.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new in-memory rate limiter. The cleanup goroutine
// exits when ctx is cancelled.
func NewRateLimiter(ctx context.Context, maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
	}
	go rl.cleanup(ctx)
	return rl
}

// Allow checks if a request from the given key should be allowed.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]

	if !exists || now.Sub(entry.windowStart) > rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return true, 0, nil
	}

	if entry.count < rl.maxAttempts {
		entry.count++
		return true, 0, nil
	}

	return false, rl.window - now.Sub(entry.windowStart), nil
}

// cleanup periodically removes expired entries to prevent memory leaks.
func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) > rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// =============================================================================
// Redis Limiter
// =============================================================================

// RedisRateLimiter counts requests in Redis so every instance shares limits.
// Each key is an INCR counter that expires with its window.
type RedisRateLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	prefix      string
}

// NewRedisRateLimiter creates a Redis-backed limiter. prefix namespaces the
// counter keys ("ratelimit:verify:").
func NewRedisRateLimiter(client *redis.Client, prefix string, maxAttempts int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		prefix:      prefix,
	}
}

// Allow increments the counter for key and reports whether it is within the limit.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = rl.prefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// First hit in the window, or a counter that lost its expiry.
		if err := rl.client.PExpire(ctx, key, rl.window).Err(); err != nil {
			return true, 0, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
		remaining = rl.window
	}

	if incr.Val() > int64(rl.maxAttempts) {
		return false, remaining, nil
	}
	return true, 0, nil
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimit returns middleware that limits requests per client IP. name
// labels the limit in logs. Limiter errors fail open.
func RateLimit(limiter Limiter, name string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := handler.ClientIP(r)

			allowed, retryAfter, err := limiter.Allow(r.Context(), name+":"+clientIP)
			if err != nil {
				logger.Error("rate limiter unavailable", "limit", name, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.Warn("rate limit exceeded",
					"limit", name,
					"ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method,
				)
				handler.RateLimitResponse(w, r, logger, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
