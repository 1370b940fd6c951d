// Package handler contains the HTTP handlers for the application.
//
// Handlers translate JSON requests into service calls and domain errors
// into status codes. They hold no business logic.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/signup/internal/auth"
	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/service"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// AuthHandler handles registration, login, logout and the dashboard.
type AuthHandler struct {
	userService service.UserService
	cookies     *session.CookieCodec
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, cookies *session.CookieCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cookies:     cookies,
		logger:      logger,
	}
}

// =============================================================================
// Request / Response Types
// =============================================================================

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DashboardResponse is the body of GET /dashboard.
type DashboardResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"user_id"`
}

// =============================================================================
// POST /register
// =============================================================================

// Register creates an account. It does not log the user in.
//
// Responses:
// - 201 on success
// - 400 for missing fields or an email that is already registered
// - 500 on store failure
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.authError(w, r, err)
		return
	}

	_, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.authError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// =============================================================================
// POST /login
// =============================================================================

// Login verifies credentials and issues a fresh session cookie.
//
// The token from any cookie the client already holds is handed to the
// service so that session is destroyed rather than upgraded.
//
// Responses:
// - 200 and Set-Cookie on success
// - 400 for invalid credentials
// - 500 if the session cannot be regenerated
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.authError(w, r, err)
		return
	}

	result, err := h.userService.Login(r.Context(), domain.LoginParams{
		Email:        req.Email,
		Password:     req.Password,
		CurrentToken: auth.GetSession(r.Context()).Token,
	})
	if err != nil {
		h.authError(w, r, err)
		return
	}

	if err := h.cookies.Write(w, result.Token); err != nil {
		// Do not leave a session behind that no client can reference.
		if logoutErr := h.userService.Logout(r.Context(), result.Token); logoutErr != nil {
			h.logger.Error("failed to discard session after cookie error", "error", logoutErr)
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, "AuthHandler.Login", "Failed to encode session cookie"))
		return
	}

	writeMessage(w, http.StatusOK, "Login successful")
}

// =============================================================================
// POST /logout
// =============================================================================

// Logout destroys the session and clears the cookie.
// Logging out without a session still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.GetSession(r.Context()).Token

	if err := h.userService.Logout(r.Context(), token); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.cookies.Clear(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

// =============================================================================
// GET /dashboard
// =============================================================================

// Dashboard returns placeholder content for an authenticated user.
// It must be mounted behind RequireSession.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		Message: "Welcome to your dashboard",
		UserID:  userID,
	})
}

// =============================================================================
// Routes
// =============================================================================

// RegisterRoutes registers the auth routes on mux.
//
// Routes registered:
// - POST /register  -> Register (wrapped by limitRegister)
// - POST /login     -> Login (wrapped by limitLogin)
// - POST /logout    -> Logout
// - GET  /dashboard -> Dashboard (wrapped by requireSession)
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitRegister, limitLogin, requireSession func(http.Handler) http.Handler) {
	mux.Handle("POST /register", limitRegister(http.HandlerFunc(h.Register)))
	mux.Handle("POST /login", limitLogin(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
	mux.Handle("GET /dashboard", requireSession(http.HandlerFunc(h.Dashboard)))
}

// =============================================================================
// Helpers
// =============================================================================

// authError reports client-side auth failures as 400: a duplicate email
// and rejected credentials are validation errors on these endpoints.
func (h *AuthHandler) authError(w http.ResponseWriter, r *http.Request, err error) {
	status := ErrorCodeToHTTPStatus(domain.ErrorCode(err))
	switch domain.ErrorCode(err) {
	case domain.ECONFLICT, domain.EUNAUTHORIZED:
		status = http.StatusBadRequest
	}
	writeError(w, r, h.logger, err, status)
}
