package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/signup/web"
)

// SiteHandler serves the signup page and the health check.
type SiteHandler struct {
	logger *slog.Logger
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(logger *slog.Logger) *SiteHandler {
	return &SiteHandler{logger: logger}
}

// Home serves the embedded signup form.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		NotFoundResponse(w, r, h.logger)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(web.IndexHTML)
}

// Health reports liveness.
func (h *SiteHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// RegisterRoutes registers GET / and GET /health on mux.
func (h *SiteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /", h.Home)
}
