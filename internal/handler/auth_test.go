package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/signup/internal/auth"
	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Mock UserService Implementation
// =============================================================================

// mockUserService implements the service.UserService interface for testing.
type mockUserService struct {
	RegisterFunc       func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc          func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error)
	LogoutFunc         func(ctx context.Context, token string) error
	ResolveSessionFunc func(ctx context.Context, token string) (uuid.UUID, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, params)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) ResolveSession(ctx context.Context, token string) (uuid.UUID, error) {
	if m.ResolveSessionFunc != nil {
		return m.ResolveSessionFunc(ctx, token)
	}
	return uuid.Nil, session.ErrNotFound
}

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestAuthHandler(us *mockUserService) (*AuthHandler, *session.CookieCodec) {
	codec := session.NewCookieCodec(testSecret, false)
	return NewAuthHandler(us, codec, newTestLogger()), codec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSession(req *http.Request, s auth.Session) *http.Request {
	return req.WithContext(auth.SetSession(req.Context(), s))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) JSONError {
	t.Helper()
	var body JSONError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

// =============================================================================
// POST /register Tests
// =============================================================================

func TestRegister_Success(t *testing.T) {
	var got domain.RegisterParams
	h, _ := newTestAuthHandler(&mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			got = params
			return &domain.User{ID: uuid.New(), Email: params.Email}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest("POST", "/register", `{"username":"alice","email":"alice@example.com","password":"secret"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" || got.Password != "secret" {
		t.Errorf("params = %+v", got)
	}
	if sessionCookie(rec) != nil {
		t.Error("registration must not set a session cookie")
	}

	var body MessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "User registered successfully" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRegister_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "duplicate email",
			err:        domain.Conflict("UserService.Register", "User already exists"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "User already exists",
		},
		{
			name:       "validation",
			err:        domain.NewValidationError("UserService.Register", "email", "Email is required"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Validation failed",
		},
		{
			name:       "store failure",
			err:        domain.Internal(errors.New("connection refused"), "UserService.Register", "Failed to create user"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "An internal error occurred. Please try again later.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestAuthHandler(&mockUserService{
				RegisterFunc: func(context.Context, domain.RegisterParams) (*domain.User, error) {
					return nil, tc.err
				},
			})

			rec := httptest.NewRecorder()
			h.Register(rec, jsonRequest("POST", "/register", `{"username":"a","email":"a@b.co","password":"p"}`))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Error.Message != tc.wantMsg {
				t.Errorf("message = %q, want %q", body.Error.Message, tc.wantMsg)
			}
			if strings.Contains(body.Error.Message, "connection refused") {
				t.Error("internal error detail leaked to client")
			}
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	called := false
	h, _ := newTestAuthHandler(&mockUserService{
		RegisterFunc: func(context.Context, domain.RegisterParams) (*domain.User, error) {
			called = true
			return nil, nil
		},
	})

	for _, body := range []string{"", "{", "not json"} {
		rec := httptest.NewRecorder()
		h.Register(rec, jsonRequest("POST", "/register", body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if called {
		t.Error("service called with a malformed body")
	}
}

// =============================================================================
// POST /login Tests
// =============================================================================

func TestLogin_SetsCookie(t *testing.T) {
	token, _, _ := session.GenerateToken()
	h, codec := newTestAuthHandler(&mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			return &domain.LoginResult{
				User:      &domain.User{ID: uuid.New()},
				Token:     token,
				ExpiresAt: time.Now().Add(session.Duration),
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest("POST", "/login", `{"email":"alice@example.com","password":"secret"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	c := sessionCookie(rec)
	if c == nil {
		t.Fatal("no session cookie set")
	}
	if !c.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if c.Secure {
		t.Error("cookie must not be Secure outside production")
	}
	if c.MaxAge != session.CookieMaxAge {
		t.Errorf("MaxAge = %d, want %d", c.MaxAge, session.CookieMaxAge)
	}
	if c.Value == token {
		t.Error("cookie carries the raw token unsigned")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(c)
	decoded, err := codec.Read(req)
	if err != nil || decoded != token {
		t.Errorf("cookie decodes to %q (%v), want %q", decoded, err, token)
	}
}

func TestLogin_PassesCurrentTokenForRegeneration(t *testing.T) {
	var got string
	h, _ := newTestAuthHandler(&mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			got = params.CurrentToken
			newToken, _, _ := session.GenerateToken()
			return &domain.LoginResult{Token: newToken}, nil
		},
	})

	req := withSession(
		jsonRequest("POST", "/login", `{"email":"a@b.co","password":"p"}`),
		auth.Session{State: auth.CookieUnresolved, Token: "pre-login-token"},
	)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if got != "pre-login-token" {
		t.Errorf("CurrentToken = %q, want pre-login-token", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{
		LoginFunc: func(context.Context, domain.LoginParams) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("UserService.Login", "Invalid email or password")
		},
	})

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest("POST", "/login", `{"email":"a@b.co","password":"wrong"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("failed login set a cookie")
	}
	if body := decodeError(t, rec); body.Error.Message != "Invalid email or password" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestLogin_RegenerationFailure(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{
		LoginFunc: func(context.Context, domain.LoginParams) (*domain.LoginResult, error) {
			return nil, domain.Internal(errors.New("store down"), "UserService.Login", "Failed to create session")
		},
	})

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest("POST", "/login", `{"email":"a@b.co","password":"p"}`))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("failed login set a cookie")
	}
}

// =============================================================================
// POST /logout Tests
// =============================================================================

func TestLogout_ClearsCookie(t *testing.T) {
	var got string
	h, _ := newTestAuthHandler(&mockUserService{
		LogoutFunc: func(ctx context.Context, token string) error {
			got = token
			return nil
		},
	})

	req := withSession(httptest.NewRequest("POST", "/logout", nil),
		auth.Session{State: auth.CookieValid, UserID: uuid.New(), Token: "tok"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != "tok" {
		t.Errorf("logout token = %q, want tok", got)
	}
	c := sessionCookie(rec)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("expected cleared cookie, got %+v", c)
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest("POST", "/logout", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLogout_StoreFailure(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{
		LogoutFunc: func(context.Context, string) error {
			return domain.Internal(errors.New("redis down"), "UserService.Logout", "Failed to destroy session")
		},
	})

	req := withSession(httptest.NewRequest("POST", "/logout", nil),
		auth.Session{State: auth.CookieValid, UserID: uuid.New(), Token: "tok"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("cookie cleared although the session may still exist")
	}
}

// =============================================================================
// GET /dashboard Tests
// =============================================================================

func TestDashboard(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{})

	t.Run("authenticated", func(t *testing.T) {
		userID := uuid.New()
		req := withSession(httptest.NewRequest("GET", "/dashboard", nil),
			auth.Session{State: auth.CookieValid, UserID: userID})
		rec := httptest.NewRecorder()
		h.Dashboard(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body DashboardResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.UserID != userID {
			t.Errorf("user_id = %v, want %v", body.UserID, userID)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Dashboard(rec, httptest.NewRequest("GET", "/dashboard", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

// =============================================================================
// Routes Tests
// =============================================================================

func TestAuthHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{
		RegisterFunc: func(context.Context, domain.RegisterParams) (*domain.User, error) {
			return &domain.User{}, nil
		},
	})

	var wrapped []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				wrapped = append(wrapped, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, tag("register"), tag("login"), tag("require"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, jsonRequest("POST", "/register", `{"username":"a","email":"a@b.co","password":"p"}`))
	if rec.Code != http.StatusCreated {
		t.Errorf("register status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/dashboard", nil))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/register", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /register status = %d, want 405", rec.Code)
	}

	if strings.Join(wrapped, ",") != "register,require" {
		t.Errorf("middleware applied = %v, want [register require]", wrapped)
	}
}
