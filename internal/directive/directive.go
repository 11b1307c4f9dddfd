package directive

import (
	"log/slog"

	"workboard/internal/directive/handler"
	"workboard/internal/directive/service"
	"workboard/internal/store"
)

// Service manages stored strategy directives.
type Service = service.Service

// Handler wires HTTP endpoints to the directive service.
type Handler = handler.Handler

// NewService constructs the directive service.
func NewService(st store.Store, mirror service.Mirror, opts ...service.Option) *Service {
	return service.New(st, mirror, opts...)
}

// NewHandler constructs an HTTP handler for directive routes. The learner is
// the assistant's directive-creation side.
func NewHandler(s *Service, learner handler.Learner, logger *slog.Logger) *Handler {
	return handler.New(s, learner, logger)
}
