package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fanvault/fanvault/internal/ctxkeys"
)

// RateLimiter is a sliding window limiter keyed by client address.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow records a request for key when it fits the window. Otherwise it
// returns false and the time until the oldest counted request expires.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.recent(key, now)

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		if len(recent) == 0 {
			return false, rl.window
		}
		return false, recent[0].Add(rl.window).Sub(now)
	}

	rl.requests[key] = append(recent, now)
	return true, 0
}

// recent drops timestamps outside the window, reusing the stored slice.
func (rl *RateLimiter) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	stored := rl.requests[key]

	i := 0
	for i < len(stored) && !stored[i].After(cutoff) {
		i++
	}
	return stored[i:]
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() {
		if rl.stop != nil {
			close(rl.stop)
		}
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup forgets addresses without a request in the last window.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.requests {
		if len(rl.recent(key, now)) == 0 {
			delete(rl.requests, key)
		}
	}
}

// RateLimitAuth limits sign-up and sign-in to 5 attempts per 15 minutes per
// address, counted separately for each route.
func RateLimitAuth() func(http.HandlerFunc) http.HandlerFunc {
	return RateLimit(NewRateLimiter(5, 15*time.Minute))
}

// RateLimit wraps handlers with the given limiter. Requests are keyed by
// client address and path, so one limiter can guard several routes.
func RateLimit(limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			ok, retryAfter := limiter.Allow(ip + " " + r.URL.Path)
			if !ok {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				ctxkeys.AddLog(r.Context(),
					slog.Bool("rate_limited", true),
					slog.Int("retry_after_s", seconds),
				)
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "retry_after_s", seconds)

				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				deny(w, http.StatusTooManyRequests, "Muitas tentativas. Tente novamente mais tarde.")
				return
			}

			next(w, r)
		}
	}
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address without its port.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
