// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "session"

// State is the outcome of resolving the session cookie for one request.
type State int

const (
	// NoCookie means the request carried no session cookie.
	NoCookie State = iota

	// CookieUnresolved means a cookie was present but did not resolve to a
	// live session: bad signature, unknown, expired or destroyed.
	CookieUnresolved

	// CookieValid means the cookie resolved to a live session.
	CookieValid
)

func (s State) String() string {
	switch s {
	case NoCookie:
		return "no-cookie"
	case CookieUnresolved:
		return "cookie-unresolved"
	case CookieValid:
		return "cookie-valid"
	default:
		return "unknown"
	}
}

// Session describes the request's session as seen by the session middleware.
//
// Token is the raw token from a verified cookie. It is set for CookieValid
// and also for CookieUnresolved when the signature checked out, so login can
// destroy whatever record it might name.
type Session struct {
	State  State
	UserID uuid.UUID
	Token  string
}

// Authenticated reports whether the session is bound to a user.
func (s Session) Authenticated() bool {
	return s.State == CookieValid && s.UserID != uuid.Nil
}

// GetSession retrieves the session from the context.
//
// Requests that never passed through the session middleware report NoCookie.
func GetSession(ctx context.Context) Session {
	s, ok := ctx.Value(sessionContextKey).(Session)
	if !ok {
		return Session{State: NoCookie}
	}
	return s
}

// UserID returns the authenticated user id, if any.
//
// Usage:
//
//	userID, ok := auth.UserID(r.Context())
//	if !ok {
//	    // Handle unauthenticated request
//	}
func UserID(ctx context.Context) (uuid.UUID, bool) {
	s := GetSession(ctx)
	if !s.Authenticated() {
		return uuid.Nil, false
	}
	return s.UserID, true
}

// SetSession stores the session in the context.
//
// This is typically called by the session middleware after reading the cookie.
func SetSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}
