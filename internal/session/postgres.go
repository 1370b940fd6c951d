package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/signup/internal/repository"
)

// PostgresStore keeps sessions in the sessions table.
type PostgresStore struct {
	db  repository.DBTX
	now func() time.Time
}

// NewPostgresStore creates a PostgresStore on db.
func NewPostgresStore(db repository.DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const createSession = `
INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)
`

// Create inserts s.
func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	_, err := p.db.ExecContext(ctx, createSession, s.TokenHash, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const getSession = `
SELECT token_hash, user_id, created_at, expires_at
FROM sessions
WHERE token_hash = $1 AND expires_at > $2
`

// Get returns the live session for tokenHash. Expired rows are filtered in SQL.
func (p *PostgresStore) Get(ctx context.Context, tokenHash string) (*Session, error) {
	var s Session
	err := p.db.QueryRowContext(ctx, getSession, tokenHash, p.now()).Scan(
		&s.TokenHash,
		&s.UserID,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &s, nil
}

const deleteSession = `DELETE FROM sessions WHERE token_hash = $1`

// Delete removes the row for tokenHash, if any.
func (p *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := p.db.ExecContext(ctx, deleteSession, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= $1`

// DeleteExpired removes rows whose expiry has passed.
func (p *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, deleteExpiredSessions, p.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
