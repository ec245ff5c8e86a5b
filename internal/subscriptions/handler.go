package subscriptions

import (
	"context"
	"errors"
	"net/http"

	"github.com/ajg/form"
	"github.com/bissquit/newsletter-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// maxFormBytes caps the size of a sign-up form body.
const maxFormBytes = 64 << 10

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrDuplicateEmail, Status: http.StatusConflict, Message: "email is already subscribed"},
}

// Handler handles HTTP requests for the subscriptions module.
type Handler struct {
	service *Service
}

// NewHandler creates a new subscriptions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public subscription routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/subscriptions", h.Subscribe)
}

// SubscribeForm is the application/x-www-form-urlencoded sign-up body.
type SubscribeForm struct {
	Name  string `form:"name"`
	Email string `form:"email"`
}

// Subscribe handles POST /subscriptions.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeForm
	decoder := form.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	// Persistence and dispatch run to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	_, err := h.service.Subscribe(ctx, SubscribeInput(req))
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			httputil.ValidationDetails(w, []httputil.FieldError{
				{Field: validationErr.Field, Message: validationErr.Reason},
			})
			return
		}
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.Empty(w, http.StatusOK)
}
