package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"interviewprep/internal/errors"

	"golang.org/x/time/rate"
)

// limiterEvictionAge is both the cleanup period and the idle time after
// which a client's bucket is dropped
const limiterEvictionAge = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key (IP or access key)
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	every   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewRateLimiter allows requests per window for each key, with bursts of
// up to burst requests. A window of zero means one minute.
func NewRateLimiter(requests int, window time.Duration, burst int, logger *errors.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	limit := rate.Limit(0)
	if requests > 0 {
		limit = rate.Every(window / time.Duration(requests))
	}

	rl := &RateLimiter{
		buckets: make(map[string]*clientBucket),
		every:   limit,
		burst:   burst,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop(limiterEvictionAge)
	return rl
}

// Allow takes a token from the bucket of key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	rl.mu.Unlock()

	return b.limiter.Allow()
}

// GetStats returns the limiter settings and the number of tracked clients
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.buckets),
		"rate_per_second": float64(rl.every),
		"rate_per_minute": float64(rl.every) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(interval)
		case <-rl.done:
			return
		}
	}
}

// cleanup drops buckets idle for longer than idle
func (rl *RateLimiter) cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
	rl.logger.Debug("Evicted idle rate limit buckets", "remaining", len(rl.buckets))
}

// Close stops the eviction loop. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// rateLimitMiddleware creates rate limiting middleware using golang.org/x/time/rate.
// Rejected requests are counted in the rate limit metric.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rateLimitKey := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if rateLimitKey == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(rateLimitKey) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r),
					"request_id", requestID(r.Context()))
				s.observability.Metrics().RecordRateLimitHit(r.Context(), r.URL.Path)
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// getRateLimitKey prefers the access key when keyed by API key
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := bearerOrAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
