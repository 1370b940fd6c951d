package service

import (
	"errors"
	"time"

	"github.com/DukeRupert/signup/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by PasswordHasher.Verify when the password
// does not match the hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher computes and verifies salted one-way password hashes.
type PasswordHasher interface {
	// Hash returns a salted hash of password. Two calls with the same
	// password return different hashes.
	Hash(password string) (string, error)

	// Verify returns nil when password matches hash and ErrPasswordMismatch
	// when it does not. Other errors mean the hash itself is unusable.
	Verify(hash, password string) error
}

// BcryptHasher implements PasswordHasher with bcrypt.
//
// A zero Cost uses BcryptCost. Tests set bcrypt.MinCost to stay fast.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using BcryptCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: BcryptCost}
}

func (h *BcryptHasher) cost() int {
	if h.Cost == 0 {
		return BcryptCost
	}
	return h.Cost
}

// Hash generates a bcrypt hash. bcrypt embeds a random salt in the result.
func (h *BcryptHasher) Hash(password string) (string, error) {
	start := time.Now()
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares in constant time.
func (h *BcryptHasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

var _ PasswordHasher = (*BcryptHasher)(nil)
