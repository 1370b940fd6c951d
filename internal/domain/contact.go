package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactMessage is a message submitted through the contact form.
// It is immutable once stored.
type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Message   string
	UserID    *uuid.UUID // set when the sender had a live session
	CreatedAt time.Time
}

// ContactParams contains the fields submitted through the contact form.
type ContactParams struct {
	Name    string
	Email   string
	Message string
	UserID  *uuid.UUID
}
