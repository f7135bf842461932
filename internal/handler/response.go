package handler

// Response helpers: every handler sends JSON through the same two
// functions, so success bodies and error bodies have one consistent shape.
//
// Error mapping lives here and nowhere else. The service layer returns
// typed domain errors (apperror); this file translates them to status
// codes. Services never see an http.StatusXxx.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/social-network/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must go out before the body — w.Write flushes them.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent — nothing left to do but log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status code and sends it.
//
// errors.Is walks the chain set up by apperror (AppError wraps a sentinel,
// services wrap the AppError with fmt.Errorf %w), so the mapping works no
// matter how many layers added context on the way up.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrInvalidOperation):
			status = http.StatusBadRequest
			errorType = "invalid_operation"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — opaque 500. The raw message could contain SQL or
	// file paths; it goes to the log, not the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeAccountError is writeError with one route-contract tweak: the
// account endpoints (register, follow, unfollow) promise a plain 400 for
// duplicate-field and duplicate-edge conflicts, so Conflict is downgraded
// from 409 to 400 here. Everything else falls through to writeError.
func writeAccountError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "conflict",
			Message: appErr.Message,
		})
		return
	}
	writeError(w, err)
}
