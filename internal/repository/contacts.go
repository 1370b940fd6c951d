package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContactMessage is a row of the contact_messages table.
type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Message   string
	UserID    uuid.NullUUID
	CreatedAt time.Time
}

const createContactMessage = `-- name: CreateContactMessage :one
INSERT INTO contact_messages (id, name, email, message, user_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, email, message, user_id, created_at
`

// CreateContactMessageParams holds the values for CreateContactMessage.
type CreateContactMessageParams struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Message string
	UserID  uuid.NullUUID
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	row := q.db.QueryRowContext(ctx, createContactMessage,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.Message,
		arg.UserID,
	)
	var i ContactMessage
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Message,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}
