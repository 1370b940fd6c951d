// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, the session
// store and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/metrics"
	"github.com/DukeRupert/signup/internal/repository"
	"github.com/DukeRupert/signup/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 takes roughly 250ms on modern hardware.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime to prevent
	// accidental weakening. If you need to change it, do so here and redeploy.
	BcryptCost = 12

	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72

	// MaxUsernameLength bounds the free-text username.
	MaxUsernameLength = 100

	// MaxEmailLength is the RFC 5321 path limit.
	MaxEmailLength = 254
)

// Client-facing messages. Both login failure paths share one message so the
// response never reveals whether an email is registered.
const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the authentication and session lifecycle operations.
type UserService interface {
	// Register creates a new user account. No session is created.
	// Returns domain.ECONFLICT if the email is already registered.
	// Returns a *domain.ValidationError for missing or malformed fields.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login verifies credentials, destroys the session bound to
	// params.CurrentToken (if any) and creates a fresh session.
	// Returns domain.EUNAUTHORIZED for an unknown email or wrong password.
	Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error)

	// Logout destroys the session for the raw token.
	// Unknown or empty tokens are not an error.
	Logout(ctx context.Context, token string) error

	// ResolveSession returns the user bound to a live session.
	// Returns session.ErrNotFound when the token does not resolve.
	ResolveSession(ctx context.Context, token string) (uuid.UUID, error)
}

// UserStore is the credential store used by the user service.
// *repository.Queries satisfies it.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	CreateUser(ctx context.Context, arg repository.CreateUserParams) (repository.User, error)
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	users    UserStore
	sessions session.Store
	hasher   PasswordHasher
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, sessions session.Store, hasher PasswordHasher, logger *slog.Logger) UserService {
	return &userService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// =============================================================================
// Register
// =============================================================================

// Register creates a new user account.
//
// Flow:
// 1. Normalize and validate input (all fields required)
// 2. Check the email is not taken; a taken email fails before any hashing
// 3. Hash the password
// 4. Insert; a unique violation from a concurrent registration maps to the
//    same conflict error as step 2
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Username = strings.TrimSpace(params.Username)
	params.Email = normalizeEmail(params.Email)

	if err := validateRegistration(op, params); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, params.Email)
	if err == nil {
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return nil, domain.Conflict(op, msgUserExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	repoUser, err := s.users.CreateUser(ctx, repository.CreateUserParams{
		ID:           uuid.New(),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			return nil, domain.Conflict(op, msgUserExists)
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	user := repoUserToDomain(repoUser)
	s.logger.Info("user registered", "user_id", user.ID)

	return user, nil
}

// =============================================================================
// Login
// =============================================================================

// Login authenticates a user and establishes a new session.
//
// The session is regenerated at the authentication boundary: any session
// bound to the token the client presented is destroyed before a new token
// is minted, so a pre-login session id is never valid after login.
// If either step fails the login is aborted and no token is returned.
func (s *userService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email := normalizeEmail(params.Email)
	var verr error
	if email == "" {
		verr = domain.AddFieldError(verr, op, "email", "Email is required")
	}
	if params.Password == "" {
		verr = domain.AddFieldError(verr, op, "password", "Password is required")
	}
	if verr != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, verr
	}

	repoUser, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Compare against a dummy hash so an unknown email costs the same
			// as a wrong password.
			_ = s.hasher.Verify(s.dummyHash(), params.Password)
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.Unauthorized(op, msgInvalidCredentials)
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := s.hasher.Verify(repoUser.PasswordHash, params.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.Unauthorized(op, msgInvalidCredentials)
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to verify password")
	}

	// Regenerate: destroy the pre-login session first.
	if params.CurrentToken != "" {
		if err := s.sessions.Delete(ctx, session.HashToken(params.CurrentToken)); err != nil {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			return nil, domain.Internal(err, op, "Failed to destroy previous session")
		}
	}

	token, tokenHash, err := session.GenerateToken()
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	sess := session.New(tokenHash, repoUser.ID, s.now())
	if err := s.sessions.Create(ctx, sess); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	user := repoUserToDomain(repoUser)
	s.logger.Info("user logged in", "user_id", user.ID)

	// Return the RAW token; only its hash is stored.
	return &domain.LoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// =============================================================================
// Logout
// =============================================================================

// Logout destroys the whole session record.
// Tokens that cannot exist are treated as already logged out.
func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "UserService.Logout"

	if !session.ValidTokenFormat(token) {
		return nil
	}

	if err := s.sessions.Delete(ctx, session.HashToken(token)); err != nil {
		return domain.Internal(err, op, "Failed to destroy session")
	}

	metrics.LogoutsTotal.Inc()
	s.logger.Debug("session destroyed")
	return nil
}

// =============================================================================
// Session Resolution
// =============================================================================

// ResolveSession returns the user id bound to a live session.
func (s *userService) ResolveSession(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "UserService.ResolveSession"

	if !session.ValidTokenFormat(token) {
		return uuid.Nil, session.ErrNotFound
	}

	sess, err := s.sessions.Get(ctx, session.HashToken(token))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return uuid.Nil, err
		}
		return uuid.Nil, domain.Internal(err, op, "Failed to load session")
	}

	return sess.UserID, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// dummyHash returns a hash computed with the configured hasher, so the
// unknown-email path pays the same verification cost as a real account.
func (s *userService) dummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.logger.Warn("failed to compute dummy hash", "error", err)
			return
		}
		s.dummy = h
	})
	return s.dummy
}

// repoUserToDomain converts a repository row to a domain user.
// PasswordHash is left empty so it cannot leak past the service layer.
func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegistration collects every field error at once.
func validateRegistration(op string, params domain.RegisterParams) error {
	var verr error

	switch {
	case params.Username == "":
		verr = domain.AddFieldError(verr, op, "username", "Username is required")
	case len(params.Username) > MaxUsernameLength:
		verr = domain.AddFieldError(verr, op, "username", "Username must be 100 characters or less")
	}

	if err := validateEmail(params.Email); err != nil {
		verr = domain.AddFieldError(verr, op, "email", domain.ErrorMessage(err))
	}

	switch {
	case params.Password == "":
		verr = domain.AddFieldError(verr, op, "password", "Password is required")
	case len(params.Password) > MaxPasswordLength:
		verr = domain.AddFieldError(verr, op, "password", "Password must be 72 characters or less")
	}

	return verr
}

// validateEmail performs basic email format validation.
// This is not RFC 5322 compliant but catches common mistakes.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}

	if len(email) > MaxEmailLength {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	// Must contain exactly one @, and domain part must have a dot
	if strings.Count(email, "@") != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}

	local, host, _ := strings.Cut(email, "@")
	if local == "" {
		return domain.Invalid("", "Email cannot start with @")
	}
	if host == "" {
		return domain.Invalid("", "Email cannot end with @")
	}
	if !strings.Contains(host, ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}

	return nil
}

// Ensure userService implements UserService
var _ UserService = (*userService)(nil)
