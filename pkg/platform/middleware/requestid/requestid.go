// Package requestid assigns every request a correlation ID, honoring one
// supplied by the caller.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"workboard/pkg/requestcontext"
)

// Header carries the request ID on both requests and responses.
const Header = "X-Request-ID"

// Middleware stores the request ID in the context and echoes it on the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
