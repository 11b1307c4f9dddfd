package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"workboard/internal/domain"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/requestcontext"
)

// Mirror is the proposal read model fed by the sync layer.
type Mirror interface {
	Proposals() []domain.Proposal
}

// Service owns the proposal lifecycle. Approved and Rejected are terminal:
// the decision runs as a store-level compare-and-set so the first commit
// wins and the loser gets an error instead of a silent overwrite.
type Service struct {
	store  store.Store
	mirror Mirror
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service.
func New(st store.Store, mirror Mirror, opts ...Option) *Service {
	s := &Service{
		store:  st,
		mirror: mirror,
		logger: slog.Default(),
		tracer: otel.Tracer("workboard/proposal"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns the mirror's proposals, newest first.
func (s *Service) List(ctx context.Context) []domain.Proposal {
	return s.mirror.Proposals()
}

// Create files a new Pending proposal.
func (s *Service) Create(ctx context.Context, suggestion, explanation string) (domain.Proposal, error) {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.Proposal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		return domain.Proposal{}, dErrors.New(dErrors.CodeValidation, "suggestion_text is required")
	}

	p := domain.Proposal{
		ID:          id.NewProposalID(),
		Suggestion:  suggestion,
		Explanation: strings.TrimSpace(explanation),
		CreatedBy:   actor,
		CreatedAt:   requestcontext.Now(ctx),
		Approval:    domain.ApprovalPending,
	}
	data, err := domain.EncodeProposal(p)
	if err != nil {
		return domain.Proposal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode proposal")
	}
	if err := s.store.Insert(ctx, store.CollectionProposals, store.Document{ID: p.ID.String(), Data: data}); err != nil {
		return domain.Proposal{}, translateStoreErr(err)
	}

	s.logger.InfoContext(ctx, "proposal created",
		"request_id", requestcontext.RequestID(ctx),
		"proposal_id", p.ID,
	)
	return p, nil
}

// Approve moves a Pending proposal to Approved. Approval has no downstream
// effect on work items.
func (s *Service) Approve(ctx context.Context, proposalID id.ProposalID) (domain.Proposal, error) {
	return s.decide(ctx, proposalID, domain.ApprovalApproved)
}

// Reject moves a Pending proposal to Rejected.
func (s *Service) Reject(ctx context.Context, proposalID id.ProposalID) (domain.Proposal, error) {
	return s.decide(ctx, proposalID, domain.ApprovalRejected)
}

func (s *Service) decide(ctx context.Context, proposalID id.ProposalID, to domain.ApprovalStatus) (domain.Proposal, error) {
	ctx, span := s.tracer.Start(ctx, "proposal.decide",
		trace.WithAttributes(
			attribute.String("proposal_id", proposalID.String()),
			attribute.String("decision", string(to)),
		))
	defer span.End()

	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return domain.Proposal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != string(domain.RoleManager) {
		return domain.Proposal{}, dErrors.New(dErrors.CodeForbidden, "only managers may decide proposals")
	}

	var decided domain.Proposal
	err := s.store.UpdateTx(ctx, store.CollectionProposals, proposalID.String(), func(current []byte) ([]byte, error) {
		p, err := domain.DecodeProposal(proposalID.String(), current)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stored proposal is unreadable")
		}
		if p.Approval.Terminal() {
			// First commit won; this decision loses, whatever it was.
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "proposal is already decided")
		}
		if p.Approval != domain.ApprovalPending {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "proposal is not awaiting a decision")
		}
		p.Approval = to
		p.DecidedBy = actor
		p.DecidedAt = requestcontext.Now(ctx)
		decided = p
		return domain.EncodeProposal(p)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Proposal{}, translateStoreErr(err)
	}

	s.logger.InfoContext(ctx, "proposal decided",
		"request_id", requestcontext.RequestID(ctx),
		"proposal_id", proposalID,
		"decision", string(to),
		"decided_by", actor,
	)
	return decided, nil
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "proposal already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "document store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "proposal write failed")
	}
}
