package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workboard/internal/assistant/service"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the assistant operations the handler needs.
type Service interface {
	StrategyReply(ctx context.Context, message string) (service.Reply, error)
}

// Handler wires the chat endpoint to the assistant service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts assistant endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assistant/chat", h.HandleChat)
}

// HandleChat handles POST /assistant/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*ChatRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reply, err := h.service.StrategyReply(ctx, req.Message)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChatResponse{
		Reply:    reply.Text,
		Advisory: reply.Advisory,
	})
}

// ChatRequest is the payload for POST /assistant/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

func (r *ChatRequest) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if len(r.Message) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "message must be at most 4000 characters")
	}
	return nil
}

// ChatResponse carries the assistant reply. Advisory marks failure notices
// standing in for a generated answer.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Advisory bool   `json:"advisory,omitempty"`
}
