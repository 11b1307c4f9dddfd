// Package service manages the stored strategy directives. Creation lives
// with the assistant, which condenses raw manager input before it lands
// here.
package service

import (
	"context"
	"errors"
	"log/slog"

	"workboard/internal/domain"
	"workboard/internal/store"
	id "workboard/pkg/domain"
	dErrors "workboard/pkg/domain-errors"
	"workboard/pkg/platform/sentinel"
	"workboard/pkg/requestcontext"
)

// Mirror is the synced view of the directives collection.
type Mirror interface {
	Directives() []domain.Directive
}

type Service struct {
	store  store.Store
	mirror Mirror
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(st store.Store, mirror Mirror, opts ...Option) *Service {
	s := &Service{store: st, mirror: mirror, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// List returns the mirrored directives, newest first.
func (s *Service) List(ctx context.Context) []domain.Directive {
	return s.mirror.Directives()
}

// Delete removes a directive immediately and irreversibly. Manager-only.
func (s *Service) Delete(ctx context.Context, directiveID id.DirectiveID) error {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != string(domain.RoleManager) {
		return dErrors.New(dErrors.CodeForbidden, "only managers may delete directives")
	}

	if err := s.store.Delete(ctx, store.CollectionDirectives, directiveID.String()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "directive not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete directive")
	}

	s.logger.InfoContext(ctx, "directive deleted",
		"directive_id", directiveID,
		"deleted_by", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
