package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Store.Get when no live session matches the hash.
// Expired records are reported as not found.
var ErrNotFound = errors.New("session: not found")

// Session is the server-side proof of a prior successful login.
type Session struct {
	TokenHash string    `json:"token_hash"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New builds a session for userID created at now, expiring after Duration.
func New(tokenHash string, userID uuid.UUID, now time.Time) *Session {
	return &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(Duration),
	}
}

// IsExpiredAt reports whether the session is expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Store persists session records. Any key-value or document backend can
// satisfy it; see PostgresStore, RedisStore and MemoryStore.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// Get returns the live session for tokenHash or ErrNotFound.
	Get(ctx context.Context, tokenHash string) (*Session, error)

	// Delete removes the session for tokenHash. Deleting a missing
	// session is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes expired records and returns how many were removed.
	// Backends with native expiry may return 0.
	DeleteExpired(ctx context.Context) (int64, error)
}

// GenerateToken returns a new random token and its storage hash.
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 of a raw token.
//
// Tokens carry 256 bits of entropy so a fast hash is enough; a leaked
// sessions table cannot be replayed as cookies.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether token looks like a raw session token.
func ValidTokenFormat(token string) bool {
	if len(token) != TokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
