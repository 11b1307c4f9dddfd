package server

import (
	"context"
	"net/http"

	"workboard/pkg/platform/httputil"
)

// Seeder runs one baseline seeding pass.
type Seeder interface {
	EnsureSeed(ctx context.Context) error
}

// SeedHandler exposes POST /seed.
func SeedHandler(seeder Seeder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := seeder.EnsureSeed(r.Context()); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
