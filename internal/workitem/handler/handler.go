package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workboard/internal/domain"
	"workboard/internal/workitem/service"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the work item operations the handler needs.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (domain.WorkItem, error)
	Update(ctx context.Context, itemID id.WorkItemID, patch service.UpdatePatch) (domain.WorkItem, error)
	Get(ctx context.Context, itemID id.WorkItemID) (domain.WorkItem, error)
	List(ctx context.Context) []domain.WorkItem
	Ranked(ctx context.Context) []domain.WorkItem
	ByProject(ctx context.Context) []service.ProjectGroup
	Mine(ctx context.Context) []domain.WorkItem
	Weights(ctx context.Context) domain.Weights
	SetWeights(ctx context.Context, w domain.Weights) error
}

// Handler wires work item endpoints to the work item service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a work item handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts work item endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/workitems", h.HandleCreate)
	r.Get("/workitems", h.HandleList)
	r.Get("/workitems/ranked", h.HandleRanked)
	r.Get("/workitems/{id}", h.HandleGet)
	r.Patch("/workitems/{id}", h.HandleUpdate)
	r.Get("/weights", h.HandleGetWeights)
	r.Put("/weights", h.HandleSetWeights)
}

// HandleCreate handles POST /workitems requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*CreateWorkItemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	item, err := h.service.Create(ctx, req.Parsed())
	if err != nil {
		h.logger.ErrorContext(ctx, "work item creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromWorkItem(item))
}

// HandleList handles GET /workitems requests. The optional view query
// selects one of the board's projections.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch view := r.URL.Query().Get("view"); view {
	case "", "all":
		httputil.WriteJSON(w, http.StatusOK, FromWorkItems(h.service.List(ctx)))
	case "ranked":
		httputil.WriteJSON(w, http.StatusOK, FromWorkItems(h.service.Ranked(ctx)))
	case "mine":
		httputil.WriteJSON(w, http.StatusOK, FromWorkItems(h.service.Mine(ctx)))
	case "project":
		httputil.WriteJSON(w, http.StatusOK, FromProjectGroups(h.service.ByProject(ctx)))
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown view"))
	}
}

// HandleRanked handles GET /workitems/ranked requests.
func (h *Handler) HandleRanked(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromWorkItems(h.service.Ranked(r.Context())))
}

// HandleGet handles GET /workitems/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := id.ParseWorkItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.service.Get(ctx, itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkItem(item))
}

// HandleUpdate handles PATCH /workitems/{id} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	itemID, err := id.ParseWorkItemID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[*UpdateWorkItemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	item, err := h.service.Update(ctx, itemID, req.Parsed())
	if err != nil {
		h.logger.ErrorContext(ctx, "work item update failed",
			"request_id", requestID,
			"work_item_id", itemID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkItem(item))
}

// HandleGetWeights handles GET /weights requests.
func (h *Handler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromWeights(h.service.Weights(r.Context())))
}

// HandleSetWeights handles PUT /weights requests.
func (h *Handler) HandleSetWeights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*WeightsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetWeights(ctx, req.Weights()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWeights(h.service.Weights(ctx)))
}
