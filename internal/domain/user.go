// Package domain contains core business types and interfaces.
//
// These types are separate from the repository rows so the service layer
// can validate and reshape data without depending on the database layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
//
// Users are created on registration and never updated or deleted.
// PasswordHash is cleared before a User leaves the service layer.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string // Never expose this in API responses
	CreatedAt    time.Time
}

// RegisterParams contains the fields submitted to create an account.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// LoginParams contains the credentials for a login attempt.
//
// CurrentToken is the raw session token the client presented before
// authenticating, if any. It is destroyed during login so that a
// pre-authentication session id can never become an authenticated one.
type LoginParams struct {
	Email        string
	Password     string
	CurrentToken string
}

// LoginResult is returned by a successful login.
// Token is the raw session token; it is only ever handed to the cookie codec.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
