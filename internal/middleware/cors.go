package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/handler"
	"github.com/rs/cors"
)

// CORSMiddleware allows credentialed cross-origin calls from an explicit
// allowlist only.
//
// rs/cors never blocks a simple request by itself; it only omits the
// Access-Control headers. Handler therefore rejects any request whose
// Origin is neither allowed nor same-origin before it reaches a route.
type CORSMiddleware struct {
	cors   *cors.Cors
	secure bool
	logger *slog.Logger
}

// NewCORSMiddleware creates the cross-origin policy for allowedOrigins.
// When secure is set the site is served over HTTPS even if TLS terminates
// at a proxy, so only https origins count as same-origin.
func NewCORSMiddleware(allowedOrigins []string, secure bool, logger *slog.Logger) *CORSMiddleware {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return &CORSMiddleware{cors: c, secure: secure, logger: logger}
}

// Handler returns middleware applying the policy.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	withCORS := m.cors.Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !m.sameOrigin(origin, r) && !m.cors.OriginAllowed(r) {
			m.logger.Warn("cross-origin request rejected", "origin", origin, "path", r.URL.Path)
			handler.ErrorResponse(w, r, m.logger, domain.Forbidden("", "Origin not allowed"))
			return
		}
		withCORS.ServeHTTP(w, r)
	})
}

// sameOrigin reports whether origin names the scheme and host the request
// was sent to. Browsers send Origin on same-origin POSTs too.
func (m *CORSMiddleware) sameOrigin(origin string, r *http.Request) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	scheme := "http"
	if m.secure || r.TLS != nil {
		scheme = "https"
	}
	return u.Scheme == scheme && u.Host != "" && u.Host == r.Host
}
