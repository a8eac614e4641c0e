package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error the
// API produces has the same shape:
//
//	{"error": "not_found", "message": "job not found with id 12"}
//
// The tracker client reads "message" first when it builds the text it shows
// the user, so messages here are written for people, not for logs.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/jobpilot/internal/apperror"
)

// maxBodyBytes caps request bodies. A job description is the largest field.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, for validation errors
}

// writeJSON sends data with the given status. Headers go out before the body,
// so nothing may touch w.Header() after this call.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w", appErr) still maps by its sentinel.
//
//	ErrValidation → 400   ErrAuth     → 401   ErrForbidden → 403
//	ErrNotFound   → 404   ErrConflict → 409   anything else → 500
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrAuth):
			status, errorType = http.StatusUnauthorized, "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status, errorType = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status, errorType = http.StatusConflict, "conflict"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
				Field:   appErr.Field,
			})
			return
		}
	}

	// Raw errors may carry SQL or file paths. Log them, never send them.
	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "Request body is too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// idParam parses the {id} path segment.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "Invalid id "+strconv.Quote(raw))
	}
	return id, nil
}
