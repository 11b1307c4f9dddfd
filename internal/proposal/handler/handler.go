package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"workboard/internal/domain"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/httputil"
	"workboard/pkg/requestcontext"
)

// Service defines the proposal operations the handler needs.
type Service interface {
	List(ctx context.Context) []domain.Proposal
	Create(ctx context.Context, suggestion, explanation string) (domain.Proposal, error)
	Approve(ctx context.Context, proposalID id.ProposalID) (domain.Proposal, error)
	Reject(ctx context.Context, proposalID id.ProposalID) (domain.Proposal, error)
}

// Handler wires proposal endpoints to the proposal service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a proposal handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts proposal endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/proposals", h.HandleList)
	r.Post("/proposals", h.HandleCreate)
	r.Post("/proposals/{id}/approve", h.HandleApprove)
	r.Post("/proposals/{id}/reject", h.HandleReject)
}

// ProposalResponse is the API representation of a proposal.
type ProposalResponse struct {
	ID          string `json:"id"`
	Suggestion  string `json:"suggestion_text"`
	Explanation string `json:"explanation,omitempty"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at,omitempty"`
	Approval    string `json:"approval_status"`
	DecidedBy   string `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
}

// FromProposal maps a domain proposal to its API shape.
func FromProposal(p domain.Proposal) ProposalResponse {
	resp := ProposalResponse{
		ID:          p.ID.String(),
		Suggestion:  p.Suggestion,
		Explanation: p.Explanation,
		CreatedBy:   p.CreatedBy.String(),
		Approval:    string(p.Approval),
	}
	if !p.CreatedAt.IsZero() {
		resp.CreatedAt = p.CreatedAt.Format(time.RFC3339Nano)
	}
	if !p.DecidedBy.IsNil() {
		resp.DecidedBy = p.DecidedBy.String()
	}
	if !p.DecidedAt.IsZero() {
		resp.DecidedAt = p.DecidedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// CreateProposalRequest is the HTTP request body for POST /proposals.
type CreateProposalRequest struct {
	Suggestion  string `json:"suggestion_text"`
	Explanation string `json:"explanation"`
}

// Validate validates the request.
func (r *CreateProposalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Suggestion = strings.TrimSpace(r.Suggestion)
	if r.Suggestion == "" {
		return dErrors.New(dErrors.CodeValidation, "suggestion_text is required")
	}
	if len(r.Suggestion) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "suggestion_text is too long")
	}
	if len(r.Explanation) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "explanation is too long")
	}
	return nil
}

// HandleList handles GET /proposals requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	proposals := h.service.List(r.Context())
	out := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, FromProposal(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /proposals requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[*CreateProposalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Create(ctx, req.Suggestion, req.Explanation)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromProposal(p))
}

// HandleApprove handles POST /proposals/{id}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// HandleReject handles POST /proposals/{id}/reject requests.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(context.Context, id.ProposalID) (domain.Proposal, error)) {
	ctx := r.Context()

	proposalID, err := id.ParseProposalID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := op(ctx, proposalID)
	if err != nil {
		h.logger.WarnContext(ctx, "proposal decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"proposal_id", proposalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProposal(p))
}
