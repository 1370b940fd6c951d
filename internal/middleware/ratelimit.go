package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/handler"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter tracks request counts per key with a fixed window.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// Call Close to stop the loop.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
		stopCh:      make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request from the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]

	if !exists {
		// First request from this key
		rl.entries[key] = &rateLimitEntry{
			count:       1,
			windowStart: now,
		}
		return true
	}

	// Check if window has expired
	if now.Sub(entry.windowStart) > rl.window {
		entry.count = 1
		entry.windowStart = now
		return true
	}

	if entry.count < rl.maxAttempts {
		entry.count++
		return true
	}

	return false
}

// TimeUntilReset returns how long until the rate limit resets for a key.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(entry.windowStart)
	if elapsed >= rl.window {
		return 0
	}

	return rl.window - elapsed
}

// Blocked reports whether key has used up its attempts in the current window.
// Unlike Allow it does not count an attempt.
func (rl *RateLimiter) Blocked(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists || rl.now().Sub(entry.windowStart) > rl.window {
		return false
	}
	return entry.count >= rl.maxAttempts
}

// RecordFailure records a failed attempt without checking the limit.
// Used to track failed logins that should count against the limit.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]
	if !exists || now.Sub(entry.windowStart) > rl.window {
		rl.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return
	}
	entry.count++
}

// Reset clears the rate limit for a key (e.g., after successful login).
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// Close stops the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// cleanup periodically removes expired entries to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.removeExpired()
		}
	}
}

func (rl *RateLimiter) removeExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.entries {
		if now.Sub(entry.windowStart) > rl.window {
			delete(rl.entries, key)
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware wraps a rate limiter for use as HTTP middleware.
type RateLimitMiddleware struct {
	limiter  *RateLimiter
	clientIP *ClientIP
	logger   *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
// Requests are keyed by clientIP.FromRequest; a nil clientIP keys on the
// direct peer address.
func NewRateLimitMiddleware(limiter *RateLimiter, clientIP *ClientIP, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:  limiter,
		clientIP: clientIP,
		logger:   logger,
	}
}

// Limit returns middleware that counts every request against the limit.
// Rejected requests get 429 with a Retry-After header.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.clientIP.FromRequest(r)

		if !m.limiter.Allow(key) {
			m.reject(w, r, key)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LimitFailures returns middleware that only counts failed requests.
//
// A 4xx response other than 429 records a failure; a 2xx response clears
// the key's count. Once the failures reach the limit, requests are rejected
// until the window passes.
func (m *RateLimitMiddleware) LimitFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.clientIP.FromRequest(r)

		if m.limiter.Blocked(key) {
			m.reject(w, r, key)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		switch status := wrapped.statusCode; {
		case status >= 200 && status < 300:
			m.limiter.Reset(key)
		case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			m.limiter.RecordFailure(key)
		}
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, key string) {
	m.logger.Warn("rate limit exceeded",
		"ip", key,
		"path", r.URL.Path,
		"method", r.Method,
	)

	retryAfter := int(m.limiter.TimeUntilReset(key).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	handler.ErrorResponse(w, r, m.logger, domain.RateLimit(""))
}

// =============================================================================
// Auth Rate Limiter (combined limiter for auth endpoints)
// =============================================================================

// Auth endpoint limits.
const (
	// LoginMaxFailures failed logins per LoginWindow lock an address out.
	// Successful logins do not count and clear earlier failures.
	LoginMaxFailures = 5
	LoginWindow      = 15 * time.Minute

	// RegisterMaxAttempts registrations per RegisterWindow are allowed
	// from one address, successful or not. The budget leaves room for
	// several people behind one NAT.
	RegisterMaxAttempts = 20
	RegisterWindow      = time.Hour
)

// AuthRateLimiter provides rate limiting for authentication endpoints
// with different limits for different actions.
type AuthRateLimiter struct {
	login    *RateLimitMiddleware
	register *RateLimitMiddleware
}

// NewAuthRateLimiter creates the login and register limiters.
func NewAuthRateLimiter(clientIP *ClientIP, logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		login:    NewRateLimitMiddleware(NewRateLimiter(LoginMaxFailures, LoginWindow), clientIP, logger),
		register: NewRateLimitMiddleware(NewRateLimiter(RegisterMaxAttempts, RegisterWindow), clientIP, logger),
	}
}

// LimitLogin returns middleware that locks out an address after repeated
// failed logins.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return a.login.LimitFailures(next)
}

// LimitRegister returns middleware for rate limiting registration attempts.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return a.register.Limit(next)
}

// Close stops both limiters' cleanup loops.
func (a *AuthRateLimiter) Close() {
	a.login.limiter.Close()
	a.register.limiter.Close()
}
