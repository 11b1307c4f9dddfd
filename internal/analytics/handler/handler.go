// Package handler ingests client-side product events for the session's
// tracker.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workboard/internal/analytics"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Handler wires the analytics ingest endpoint to the session registry.
type Handler struct {
	registry *analytics.Registry
	logger   *slog.Logger
}

func New(registry *analytics.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register mounts analytics endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/analytics/events", h.HandleEvent)
}

// HandleEvent handles POST /analytics/events requests.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*EventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no session"))
		return
	}
	tracker := h.registry.ForSession(sessionID, requestcontext.UserID(ctx))

	switch analytics.EventType(req.Type) {
	case analytics.EventTaskFormOpen:
		tracker.FormOpened(ctx)
	case analytics.EventTaskFormSubmit:
		if req.Field != "" {
			tracker.FormField(req.Field)
		}
		tracker.FormSubmitted(ctx)
	case analytics.EventTaskFormAbandon:
		if req.Field != "" {
			tracker.FormField(req.Field)
		}
		tracker.FormAbandoned(ctx)
	case analytics.EventPageView:
		tracker.PageView(ctx, req.Page)
	case analytics.EventPageLeave:
		tracker.PageLeave(ctx, req.Page)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown event type"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// EventRequest is the payload for POST /analytics/events.
type EventRequest struct {
	Type  string `json:"type"`
	Page  string `json:"page,omitempty"`
	Field string `json:"field,omitempty"`
}

func (r *EventRequest) Validate() error {
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	switch analytics.EventType(r.Type) {
	case analytics.EventPageView, analytics.EventPageLeave:
		if r.Page == "" {
			return dErrors.New(dErrors.CodeValidation, "page is required for page events")
		}
	}
	return nil
}
