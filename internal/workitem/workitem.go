package workitem

import (
	"log/slog"

	"workboard/internal/store"
	"workboard/internal/workitem/handler"
	"workboard/internal/workitem/service"
)

// Service owns work item writes and board projections.
type Service = service.Service

// Handler wires HTTP endpoints to the work item service.
type Handler = handler.Handler

// NewService constructs the work item service.
func NewService(st store.Store, mirror service.Mirror, opts ...service.Option) *Service {
	return service.New(st, mirror, opts...)
}

// NewHandler constructs an HTTP handler for work item routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
