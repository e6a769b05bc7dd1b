// Package ratelimit enforces the daily message quota for unauthenticated
// visitors. Counters live in Redis keyed by client identifier and UTC day, so
// every instance of the service shares one budget per visitor.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "rl:guest:chat"
	// checkTimeout bounds the Redis round trip so a slow counter never
	// stalls a chat request.
	checkTimeout = 3 * time.Second
)

// Result is the outcome of one quota check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// GuestLimiter counts messages per guest per UTC day. A disabled limiter (or
// one whose Redis is unreachable) allows everything: quota enforcement must
// never take the chat down with it.
type GuestLimiter struct {
	client  *redis.Client
	limit   int
	enabled bool
	now     func() time.Time
}

func NewGuestLimiter(client *redis.Client, limit int, enabled bool) *GuestLimiter {
	return &GuestLimiter{
		client:  client,
		limit:   limit,
		enabled: enabled && client != nil,
		now:     time.Now,
	}
}

// ClientIdentifier derives a stable per-visitor key from proxy headers.
// Visitors with no forwarding headers share one "unknown" bucket.
func ClientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// Check increments the visitor's counter for today and reports whether the
// message is within quota.
func (l *GuestLimiter) Check(ctx context.Context, identifier string) Result {
	now := l.now().UTC()
	reset := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

	if !l.enabled {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: reset}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	key := fmt.Sprintf("%s:%s:%s", keyPrefix, identifier, now.Format("2006-01-02"))
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("Guest limit check failed, allowing request", "error", err)
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: reset}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, reset.Sub(now)).Err(); err != nil {
			slog.Warn("Could not set guest limit expiry", "key", key, "error", err)
		}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   reset,
	}
}

// Middleware rejects over-quota requests with 429 before they reach the
// streaming handler.
func (l *GuestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := l.Check(r.Context(), ClientIdentifier(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":     "Daily guest message limit reached",
				"limit":     res.Limit,
				"remaining": 0,
				"resetAt":   res.ResetAt.Format(time.RFC3339),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
