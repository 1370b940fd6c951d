package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/signup/internal/auth"
	"github.com/DukeRupert/signup/internal/domain"
	"github.com/DukeRupert/signup/internal/service"
)

// ContactHandler accepts contact-form submissions.
type ContactHandler struct {
	contactService service.ContactService
	logger         *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contactService service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit stores a contact message. Logged-in senders are linked to their account.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.ContactParams{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if userID, ok := auth.UserID(r.Context()); ok {
		params.UserID = &userID
	}

	if _, err := h.contactService.Submit(r.Context(), params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Message received")
}

// RegisterRoutes registers POST /contact on mux.
func (h *ContactHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /contact", h.Submit)
}
