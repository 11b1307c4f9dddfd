// Package server assembles the HTTP surface: middleware chain, public
// identity routes, the authenticated board API, and operational endpoints.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workboard/internal/sync"
	authmw "workboard/pkg/platform/middleware/auth"
	"workboard/pkg/platform/middleware/metadata"
	"workboard/pkg/platform/middleware/requestid"
	"workboard/pkg/platform/middleware/requesttime"
)

// Registerer mounts a domain handler's routes.
type Registerer interface {
	Register(r chi.Router)
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger     *slog.Logger
	Validator  authmw.JWTValidator
	Revocation authmw.TokenRevocationChecker

	// Public routes (no bearer token).
	AuthHandler Registerer

	// Authenticated board API.
	Handlers []Registerer

	// Manager-gated routes.
	SeedHandler http.Handler

	// Board state for /board/snapshot and /healthz.
	Syncer *sync.Syncer
	Health func() error
}

// NewRouter builds the chi router. All routes except /auth/*, /healthz and
// /metrics require a valid bearer token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.AuthHandler.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Validator, deps.Revocation, deps.Logger))

		for _, h := range deps.Handlers {
			h.Register(r)
		}
		if deps.Syncer != nil {
			r.Get("/board/snapshot", handleBoardSnapshot(deps.Syncer))
		}
		if deps.SeedHandler != nil {
			r.With(authmw.RequireRole("manager", deps.Logger)).
				Method(http.MethodPost, "/seed", deps.SeedHandler)
		}
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				deps.Logger.ErrorContext(r.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
