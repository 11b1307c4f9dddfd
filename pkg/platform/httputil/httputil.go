// Package httputil centralizes JSON encoding and domain error translation
// for HTTP handlers so every endpoint returns the same envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "workboard/pkg/domain-errors"
)

// Validatable lets request DTOs normalize and validate themselves after
// decoding. DecodeAndPrepare calls it before handing the value back.
type Validatable interface {
	Validate() error
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error code to an HTTP status and writes the
// error envelope. Internal errors omit the description so store and
// upstream failure details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if asDomainError(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, status, body)
}

func asDomainError(err error, target **dErrors.Error) bool {
	return errors.As(err, target)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation.
// On failure it writes the error response and returns ok=false; the handler
// should simply return.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed", "request_id", requestID, "error", err)
		}
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request validation failed", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return req, false
	}
	return req, true
}
