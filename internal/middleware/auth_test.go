package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/signup/internal/auth"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Test Helpers
// =============================================================================

// mockResolver implements SessionResolver for testing.
type mockResolver struct {
	ResolveSessionFunc func(ctx context.Context, token string) (uuid.UUID, error)
	calls              int
}

func (m *mockResolver) ResolveSession(ctx context.Context, token string) (uuid.UUID, error) {
	m.calls++
	if m.ResolveSessionFunc != nil {
		return m.ResolveSessionFunc(ctx, token)
	}
	return uuid.Nil, session.ErrNotFound
}

// newTestLogger creates a logger that discards output.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestSessionMiddleware(resolver SessionResolver) (*SessionMiddleware, *session.CookieCodec) {
	codec := session.NewCookieCodec(testSecret, false)
	return NewSessionMiddleware(resolver, codec, newTestLogger()), codec
}

// signedCookie returns the cookie the codec would write for token.
func signedCookie(t *testing.T, codec *session.CookieCodec, token string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := codec.Write(rec, token); err != nil {
		t.Fatalf("write cookie: %v", err)
	}
	return rec.Result().Cookies()[0]
}

// captureSession returns a handler that records the session it sees.
func captureSession(dst *auth.Session, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*dst = auth.GetSession(r.Context())
	})
}

func clearedCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// WithSession Tests
// =============================================================================

func TestWithSession_NoCookie(t *testing.T) {
	resolver := &mockResolver{}
	mw, _ := newTestSessionMiddleware(resolver)

	var got auth.Session
	var called bool
	rec := httptest.NewRecorder()
	mw.WithSession(captureSession(&got, &called)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !called {
		t.Fatal("handler was not called")
	}
	if got.State != auth.NoCookie {
		t.Errorf("state = %v, want %v", got.State, auth.NoCookie)
	}
	if resolver.calls != 0 {
		t.Error("store consulted without a cookie")
	}
}

func TestWithSession_ForgedCookie(t *testing.T) {
	resolver := &mockResolver{}
	mw, _ := newTestSessionMiddleware(resolver)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "forged"})

	var got auth.Session
	var called bool
	rec := httptest.NewRecorder()
	mw.WithSession(captureSession(&got, &called)).ServeHTTP(rec, req)

	if !called {
		t.Fatal("middleware must not reject requests")
	}
	if got.State != auth.CookieUnresolved {
		t.Errorf("state = %v, want %v", got.State, auth.CookieUnresolved)
	}
	if got.Token != "" {
		t.Error("unverified cookie value exposed as token")
	}
	if resolver.calls != 0 {
		t.Error("store consulted for a forged cookie")
	}
	if !clearedCookie(rec) {
		t.Error("expected stale cookie to be cleared")
	}
}

func TestWithSession_UnknownSession(t *testing.T) {
	resolver := &mockResolver{}
	mw, codec := newTestSessionMiddleware(resolver)
	token, _, _ := session.GenerateToken()

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedCookie(t, codec, token))

	var got auth.Session
	var called bool
	rec := httptest.NewRecorder()
	mw.WithSession(captureSession(&got, &called)).ServeHTTP(rec, req)

	if !called {
		t.Fatal("middleware must not reject requests")
	}
	if got.State != auth.CookieUnresolved {
		t.Errorf("state = %v, want %v", got.State, auth.CookieUnresolved)
	}
	if got.Token != token {
		t.Error("verified token should be available for regeneration")
	}
	if got.Authenticated() {
		t.Error("unresolved session reported as authenticated")
	}
	if !clearedCookie(rec) {
		t.Error("expected stale cookie to be cleared")
	}
}

func TestWithSession_ValidSession(t *testing.T) {
	userID := uuid.New()
	token, _, _ := session.GenerateToken()
	resolver := &mockResolver{
		ResolveSessionFunc: func(ctx context.Context, got string) (uuid.UUID, error) {
			if got != token {
				t.Errorf("resolver got %q, want %q", got, token)
			}
			return userID, nil
		},
	}
	mw, codec := newTestSessionMiddleware(resolver)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedCookie(t, codec, token))

	var got auth.Session
	var called bool
	rec := httptest.NewRecorder()
	mw.WithSession(captureSession(&got, &called)).ServeHTTP(rec, req)

	if got.State != auth.CookieValid || got.UserID != userID {
		t.Errorf("session = %+v, want valid for %v", got, userID)
	}
	if clearedCookie(rec) {
		t.Error("valid cookie must not be cleared")
	}
}

func TestWithSession_StoreError(t *testing.T) {
	resolver := &mockResolver{
		ResolveSessionFunc: func(context.Context, string) (uuid.UUID, error) {
			return uuid.Nil, errors.New("redis: connection refused")
		},
	}
	mw, codec := newTestSessionMiddleware(resolver)
	token, _, _ := session.GenerateToken()

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(signedCookie(t, codec, token))

	var got auth.Session
	var called bool
	rec := httptest.NewRecorder()
	mw.WithSession(captureSession(&got, &called)).ServeHTTP(rec, req)

	if !called {
		t.Fatal("middleware must not reject requests")
	}
	if got.Authenticated() {
		t.Error("store error treated as authenticated")
	}
	if clearedCookie(rec) {
		t.Error("cookie cleared on a transient store error")
	}
}

// =============================================================================
// RequireSession Tests
// =============================================================================

func TestRequireSession(t *testing.T) {
	testCases := []struct {
		name       string
		session    *auth.Session
		wantStatus int
		wantCalled bool
	}{
		{"no middleware ran", nil, http.StatusUnauthorized, false},
		{"no cookie", &auth.Session{State: auth.NoCookie}, http.StatusUnauthorized, false},
		{"unresolved", &auth.Session{State: auth.CookieUnresolved, Token: "tok"}, http.StatusUnauthorized, false},
		{"valid", &auth.Session{State: auth.CookieValid, UserID: uuid.New()}, http.StatusOK, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mw, _ := newTestSessionMiddleware(&mockResolver{})

			called := false
			handler := mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/dashboard", nil)
			if tc.session != nil {
				req = req.WithContext(auth.SetSession(req.Context(), *tc.session))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if called != tc.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tc.wantCalled)
			}
		})
	}
}

// =============================================================================
// Stack Tests
// =============================================================================

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"a", "b", "c", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
