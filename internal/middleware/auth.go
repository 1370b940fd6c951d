// Package middleware contains HTTP middleware for the signup application.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/signup/internal/auth"
	"github.com/DukeRupert/signup/internal/handler"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Session Middleware Configuration
// =============================================================================

// SessionResolver maps a raw session token to the bound user id.
// service.UserService satisfies it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (uuid.UUID, error)
}

// SessionMiddleware provides session middleware functionality.
//
// Create one instance and use its methods as middleware.
type SessionMiddleware struct {
	resolver SessionResolver
	cookies  *session.CookieCodec
	logger   *slog.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware instance.
func NewSessionMiddleware(resolver SessionResolver, cookies *session.CookieCodec, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		resolver: resolver,
		cookies:  cookies,
		logger:   logger,
	}
}

// =============================================================================
// WithSession Middleware
// =============================================================================

// WithSession resolves the session cookie and stores the result in the
// request context. It never rejects a request.
//
// Flow:
//
//	Request -> WithSession -> Handler
//	           |
//	           +-> no cookie:      NoCookie, continue
//	           +-> bad signature:  CookieUnresolved, clear cookie, continue
//	           +-> no live record: CookieUnresolved, clear cookie, continue
//	           +-> live record:    CookieValid with user id, continue
//
// A store error while resolving is logged and the request continues
// anonymously; the cookie is kept since the session may still be live.
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.cookies.Read(r)
		if errors.Is(err, session.ErrNoCookie) {
			next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), auth.Session{State: auth.NoCookie})))
			return
		}
		if err != nil {
			m.cookies.Clear(w)
			next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), auth.Session{State: auth.CookieUnresolved})))
			return
		}

		userID, err := m.resolver.ResolveSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				m.cookies.Clear(w)
			} else {
				m.logger.Warn("session lookup failed", "error", err, "path", r.URL.Path)
			}
			s := auth.Session{State: auth.CookieUnresolved, Token: token}
			next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), s)))
			return
		}

		s := auth.Session{State: auth.CookieValid, UserID: userID, Token: token}
		next.ServeHTTP(w, r.WithContext(auth.SetSession(r.Context(), s)))
	})
}

// =============================================================================
// RequireSession Middleware
// =============================================================================

// RequireSession is middleware that requires an authenticated session.
//
// IMPORTANT: This middleware must be used AFTER WithSession in the chain.
//
// Usage:
//
//	requireSession := Stack(sessionMw.WithSession, sessionMw.RequireSession)
//	mux.Handle("GET /dashboard", requireSession(dashboardHandler))
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.GetSession(r.Context()).Authenticated() {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, sessionMw.WithSession, sessionMw.RequireSession)
//	mux.Handle("GET /dashboard", stack(dashboardHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).WithSession
	_ func(http.Handler) http.Handler = (&SessionMiddleware{}).RequireSession
)
