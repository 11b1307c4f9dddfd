// Package assistant is the assembly point for the AI boundary: the Gemini
// client, the strategy service, and the chat endpoint.
package assistant

import (
	"log/slog"

	"workboard/internal/assistant/gemini"
	"workboard/internal/assistant/handler"
	"workboard/internal/assistant/service"
	"workboard/internal/store"
)

type (
	Service   = service.Service
	Generator = service.Generator
	Reply     = service.Reply
	Handler   = handler.Handler
	Metrics   = service.Metrics
)

var (
	NewMetrics          = service.NewMetrics
	NewGemini           = gemini.New
	NewGuardedGenerator = service.NewGuardedGenerator
)

// NewService constructs the assistant service.
func NewService(generator service.Generator, mirror service.Mirror, st store.Store, opts ...service.Option) *Service {
	return service.New(generator, mirror, st, opts...)
}

// NewHandler constructs an HTTP handler for the chat route.
func NewHandler(s handler.Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
