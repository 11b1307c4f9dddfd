// Package auth is the assembly point for the identity boundary: credential
// stores, the token service, the revocation list, and the HTTP surface.
package auth

import (
	"log/slog"

	"workboard/internal/auth/credentials"
	"workboard/internal/auth/handler"
	"workboard/internal/auth/revocation"
	"workboard/internal/auth/service"
	"workboard/internal/auth/token"
	"workboard/internal/store"
)

type (
	Service      = service.Service
	AuthState    = service.AuthState
	SignInResult = service.SignInResult
	Hooks        = service.Hooks
	Handler      = handler.Handler
	Metrics      = service.Metrics
)

var NewMetrics = service.NewMetrics

// NewService assembles the identity service.
func NewService(users store.Store, creds credentials.Store, tokens *token.Service, revoked revocation.List, opts ...service.Option) *Service {
	return service.New(users, creds, tokens, revoked, opts...)
}

// NewHandler builds the HTTP surface over the identity service.
func NewHandler(svc handler.Service, logger *slog.Logger) *Handler {
	return handler.New(svc, logger)
}
