package roster

import (
	"log/slog"

	"workboard/internal/roster/handler"
	"workboard/internal/roster/service"
	"workboard/internal/store"
)

// Service owns roster reads and attendance writes.
type Service = service.Service

// Handler wires HTTP endpoints to the roster service.
type Handler = handler.Handler

// NewService constructs the roster service.
func NewService(st store.Store, mirror service.Mirror, opts ...service.Option) *Service {
	return service.New(st, mirror, opts...)
}

// NewHandler constructs an HTTP handler for roster routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
