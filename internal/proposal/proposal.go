package proposal

import (
	"log/slog"

	"workboard/internal/proposal/handler"
	"workboard/internal/proposal/service"
	"workboard/internal/store"
)

// Service owns the proposal approval workflow.
type Service = service.Service

// Handler wires HTTP endpoints to the proposal service.
type Handler = handler.Handler

// NewService constructs the proposal service.
func NewService(st store.Store, mirror service.Mirror, opts ...service.Option) *Service {
	return service.New(st, mirror, opts...)
}

// NewHandler constructs an HTTP handler for proposal routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
