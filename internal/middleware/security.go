package middleware

import (
	"net/http"
)

// pageCSP lets the signup page run its inline script and styles and call
// back to its own origin.
const pageCSP = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"connect-src 'self'; " +
	"frame-ancestors 'none'; " +
	"base-uri 'self'; " +
	"form-action 'self'"

// apiCSP forbids everything: JSON responses are never rendered as documents.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeadersMiddleware sets response headers for the JSON API and the
// few HTML pages served beside it.
//
// API responses may carry session cookies and account data, so they are
// marked no-store. Pages get a CSP that allows what they actually load.
type SecurityHeadersMiddleware struct {
	hsts  bool
	pages map[string]bool
}

// NewSecurityHeadersMiddleware creates the header policy. hsts enables
// Strict-Transport-Security and belongs in production only. pages lists the
// paths served as HTML documents; every other path is treated as API.
func NewSecurityHeadersMiddleware(hsts bool, pages ...string) *SecurityHeadersMiddleware {
	m := &SecurityHeadersMiddleware{hsts: hsts, pages: make(map[string]bool, len(pages))}
	for _, p := range pages {
		m.pages[p] = true
	}
	return m
}

// Handler returns middleware that sets the headers before next runs.
func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if m.hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if m.isPage(r) {
			h.Set("Content-Security-Policy", pageCSP)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		} else {
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cache-Control", "no-store")
		}

		next.ServeHTTP(w, r)
	})
}

func (m *SecurityHeadersMiddleware) isPage(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return m.pages[r.URL.Path]
}
