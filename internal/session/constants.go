// Package session implements server-side session records and the cookie
// that references them.
//
// A session is created only by a successful login and is keyed by the
// SHA-256 hash of a random token. The raw token lives only in the client's
// signed cookie.
package session

import "time"

const (
	// CookieName is the name of the cookie that stores the signed session token.
	CookieName = "signup_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// Duration is the absolute lifetime of a session, counted from creation.
	// Activity does not extend it.
	Duration = 24 * time.Hour

	// CookieMaxAge matches Duration (24h = 86400 seconds).
	CookieMaxAge = int(Duration / time.Second)

	// TokenBytes is the number of random bytes in a raw session token.
	// 32 bytes hex-encode to 64 characters.
	TokenBytes = 32
)
