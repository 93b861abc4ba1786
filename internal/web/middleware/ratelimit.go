package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures a per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per client.
	RequestsPerMinute int
	// Burst is the number of requests allowed above the sustained rate.
	Burst int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client IP.
type RateLimiter struct {
	cfg     RateLimitConfig
	limit   rate.Limit
	clients sync.Map // ip -> *clientLimiter
	mu      sync.Mutex
	now     func() time.Time
}

// NewRateLimiter returns a limiter for cfg. Non-positive values fall back to
// one request per second with a burst of one.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RateLimiter{
		cfg:   cfg,
		limit: rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		now:   time.Now,
	}
}

// StartCleanup drops clients idle for longer than maxIdle, checking every
// interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	cutoff := rl.now().Add(-maxIdle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Before(cutoff) {
			rl.clients.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if v, ok := rl.clients.Load(ip); ok {
		cl := v.(*clientLimiter)
		cl.lastSeen = now
		return cl.limiter
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.cfg.Burst), lastSeen: now}
	rl.clients.Store(ip, cl)
	return cl.limiter
}

// Allow reserves a token for ip. When none is available it returns the wait
// until the next token.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	limiter := rl.limiterFor(ip)
	now := rl.now()
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// remaining reports the whole tokens left for ip.
func (rl *RateLimiter) remaining(ip string) int {
	tokens := rl.limiterFor(ip).TokensAt(rl.now())
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// Handler returns the limiting middleware. Rejected requests get 429 with a
// Retry-After header and the RATE001 error body.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		allowed, retryAfter := rl.Allow(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerMinute))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.remaining(ip)))

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "Too many requests",
				"Please wait a moment before trying again", "RATE001")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit is a convenience wrapper around NewRateLimiter(cfg).Handler.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return NewRateLimiter(cfg).Handler
}
