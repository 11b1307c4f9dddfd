package testutil

import (
	"net/http"

	id "workboard/pkg/domain"
	"workboard/pkg/requestcontext"
)

// WithUserID stamps a user ID onto the request context, simulating what the
// auth middleware does for authenticated requests. Invalid IDs are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithSessionID stamps a session ID onto the request context.
// Invalid IDs are ignored.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	parsed, err := id.ParseSessionID(sessionID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
}

// WithRole stamps a role onto the request context.
func WithRole(req *http.Request, role string) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}

// WithAuth stamps user ID, session ID, and role onto the request context,
// the typical state of a request that passed the auth middleware.
func WithAuth(req *http.Request, userID, sessionID, role string) *http.Request {
	req = WithUserID(req, userID)
	req = WithSessionID(req, sessionID)
	return WithRole(req, role)
}
