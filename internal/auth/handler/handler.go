package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workboard/internal/auth/service"
	"workboard/internal/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the identity operations the handler needs.
type Service interface {
	SignUp(ctx context.Context, name, email, password string, role domain.Role) (domain.User, error)
	SignIn(ctx context.Context, email, password string) (service.SignInResult, error)
	DemoSignIn(ctx context.Context, role domain.Role) (service.SignInResult, error)
	SignOut(ctx context.Context, token string) error
}

// Handler wires identity endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts identity endpoints on the router. These routes sit
// outside the authenticated group.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signup", h.HandleSignUp)
	r.Post("/auth/signin", h.HandleSignIn)
	r.Post("/auth/signout", h.HandleSignOut)
	r.Post("/auth/demo", h.HandleDemoSignIn)
}

// HandleSignUp handles POST /auth/signup requests.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*SignUpRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.SignUp(ctx, req.Name, req.Email, req.Password, req.ParsedRole())
	if err != nil {
		h.logger.ErrorContext(ctx, "sign-up failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromUser(user))
}

// HandleSignIn handles POST /auth/signin requests.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*SignInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSignIn(result))
}

// HandleDemoSignIn handles POST /auth/demo requests.
func (h *Handler) HandleDemoSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*DemoSignInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.DemoSignIn(ctx, req.ParsedRole())
	if err != nil {
		h.logger.ErrorContext(ctx, "demo sign-in failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSignIn(result))
}

// HandleSignOut handles POST /auth/signout requests. The token to revoke
// comes from the Authorization header.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.service.SignOut(ctx, token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
