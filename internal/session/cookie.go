package session

import (
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

var (
	// ErrNoCookie means the request carried no session cookie.
	ErrNoCookie = errors.New("session: no cookie")

	// ErrInvalidCookie means a session cookie was present but failed
	// signature or format checks.
	ErrInvalidCookie = errors.New("session: invalid cookie")
)

// CookieCodec signs the session token into the cookie value with the
// session secret and writes the cookie attributes.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCookieCodec creates a codec keyed by secret.
// secure sets the Secure attribute and should be true in production.
func NewCookieCodec(secret []byte, secure bool) *CookieCodec {
	sc := securecookie.New(secret, nil)
	sc.MaxAge(CookieMaxAge)
	return &CookieCodec{sc: sc, secure: secure}
}

// Write sets the session cookie carrying token.
func (c *CookieCodec) Write(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(CookieName, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     CookiePath,
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the raw token from the request's session cookie.
// It returns ErrNoCookie when the cookie is absent and ErrInvalidCookie
// when it cannot be verified.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoCookie
	}

	var token string
	if err := c.sc.Decode(CookieName, cookie.Value, &token); err != nil {
		return "", ErrInvalidCookie
	}
	if !ValidTokenFormat(token) {
		return "", ErrInvalidCookie
	}
	return token, nil
}

// Clear expires the session cookie on the client.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
