package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/metrics"
	"github.com/DukeRupert/signup/internal/repository"
	"github.com/google/uuid"
)

const (
	MaxContactNameLength    = 100
	MaxContactMessageLength = 5000
)

// ContactService stores messages submitted through the contact form.
type ContactService interface {
	// Submit validates and stores a contact message.
	// Returns a *domain.ValidationError for missing or oversized fields.
	Submit(ctx context.Context, params domain.ContactParams) (*domain.ContactMessage, error)
}

// ContactStore persists contact messages. *repository.Queries satisfies it.
type ContactStore interface {
	CreateContactMessage(ctx context.Context, arg repository.CreateContactMessageParams) (repository.ContactMessage, error)
}

type contactService struct {
	store  ContactStore
	logger *slog.Logger
}

// NewContactService creates a new ContactService.
func NewContactService(store ContactStore, logger *slog.Logger) ContactService {
	return &contactService{store: store, logger: logger}
}

func (s *contactService) Submit(ctx context.Context, params domain.ContactParams) (*domain.ContactMessage, error) {
	const op = "ContactService.Submit"

	params.Name = strings.TrimSpace(params.Name)
	params.Email = normalizeEmail(params.Email)
	params.Message = strings.TrimSpace(params.Message)

	var verr error
	switch {
	case params.Name == "":
		verr = domain.AddFieldError(verr, op, "name", "Name is required")
	case len(params.Name) > MaxContactNameLength:
		verr = domain.AddFieldError(verr, op, "name", "Name must be 100 characters or less")
	}
	if err := validateEmail(params.Email); err != nil {
		verr = domain.AddFieldError(verr, op, "email", domain.ErrorMessage(err))
	}
	switch {
	case params.Message == "":
		verr = domain.AddFieldError(verr, op, "message", "Message is required")
	case len(params.Message) > MaxContactMessageLength:
		verr = domain.AddFieldError(verr, op, "message", "Message must be 5000 characters or less")
	}
	if verr != nil {
		return nil, verr
	}

	arg := repository.CreateContactMessageParams{
		ID:      uuid.New(),
		Name:    params.Name,
		Email:   params.Email,
		Message: params.Message,
	}
	if params.UserID != nil {
		arg.UserID = uuid.NullUUID{UUID: *params.UserID, Valid: true}
	}

	row, err := s.store.CreateContactMessage(ctx, arg)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to store contact message")
	}

	metrics.ContactMessagesTotal.Inc()
	s.logger.Info("contact message stored", "message_id", row.ID)

	msg := &domain.ContactMessage{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}
	if row.UserID.Valid {
		id := row.UserID.UUID
		msg.UserID = &id
	}
	return msg, nil
}

var _ ContactService = (*contactService)(nil)
