// Package repository contains the SQL queries backing the credential and
// contact stores.
//
// The layout mirrors sqlc output: a DBTX interface satisfied by *sql.DB, and
// a Queries type carrying one method per statement.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
// For users this is the email index, the backstop for concurrent registrations.
var ErrDuplicate = errors.New("repository: duplicate key")

// DBTX is the subset of database/sql used by Queries.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries executes the application's SQL statements.
type Queries struct {
	db DBTX
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
