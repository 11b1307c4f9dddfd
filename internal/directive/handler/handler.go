package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workboard/internal/domain"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the directive operations the handler needs.
type Service interface {
	List(ctx context.Context) []domain.Directive
	Delete(ctx context.Context, directiveID id.DirectiveID) error
}

// Learner condenses raw manager input into a stored directive. It is the
// assistant's side of directive creation.
type Learner interface {
	LearnDirective(ctx context.Context, text string) (domain.Directive, error)
}

// Handler wires directive endpoints to the directive service and the
// assistant's learner.
type Handler struct {
	service Service
	learner Learner
	logger  *slog.Logger
}

func New(service Service, learner Learner, logger *slog.Logger) *Handler {
	return &Handler{service: service, learner: learner, logger: logger}
}

// Register mounts directive endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/directives", h.HandleList)
	r.Post("/directives", h.HandleLearn)
	r.Delete("/directives/{id}", h.HandleDelete)
}

// HandleList handles GET /directives requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromDirectives(h.service.List(r.Context())))
}

// HandleLearn handles POST /directives requests.
func (h *Handler) HandleLearn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*LearnDirectiveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	directive, err := h.learner.LearnDirective(ctx, req.Text)
	if err != nil {
		h.logger.ErrorContext(ctx, "directive learn failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDirective(directive))
}

// HandleDelete handles DELETE /directives/{id} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	directiveID, err := id.ParseDirectiveID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, directiveID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LearnDirectiveRequest is the payload for POST /directives.
type LearnDirectiveRequest struct {
	Text string `json:"text"`
}

func (r *LearnDirectiveRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}
	if len(r.Text) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "text must be at most 4000 characters")
	}
	return nil
}
