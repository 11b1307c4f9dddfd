package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and transport clients
// return these (optionally wrapped) so services can translate them into
// coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: document does not exist in the store
// - ErrConflict: conditional write lost (e.g. approval status CAS)
// - ErrInvalidState: entity in wrong state for the requested transition
// - ErrClosed: subscription or store already torn down
// - ErrUnavailable: store or external service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrClosed       = errors.New("closed")
	ErrUnavailable  = errors.New("unavailable")
)
