package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrAuth covers rejected credentials and invalid or expired tokens.
	ErrAuth = errors.New("authentication failed")
	// ErrFetch covers application or interview retrieval failures.
	ErrFetch = errors.New("fetch failed")
	// ErrMutation covers update, delete and save calls the remote rejected.
	ErrMutation = errors.New("mutation rejected")

	ErrUpdate = fmt.Errorf("update: %w", ErrMutation)
	ErrDelete = fmt.Errorf("delete: %w", ErrMutation)
	ErrSave   = fmt.Errorf("save: %w", ErrMutation)

	// ErrMergeWarning marks an interview merge that was skipped. It is only
	// ever logged, never returned to callers or written to an error slot.
	ErrMergeWarning = errors.New("interview merge skipped")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying transport or server error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// apperror.ErrAuth as well as, say, context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Auth wraps a login/signup/token failure. The message is derived from
// cause with Message(cause, fallback).
func Auth(cause error, fallback string) *AppError {
	return wrap(ErrAuth, cause, fallback)
}

// Fetch wraps a retrieval failure.
func Fetch(cause error, fallback string) *AppError {
	return wrap(ErrFetch, cause, fallback)
}

// Update wraps a rejected partial update.
func Update(cause error, fallback string) *AppError {
	return wrap(ErrUpdate, cause, fallback)
}

// Delete wraps a rejected delete.
func Delete(cause error, fallback string) *AppError {
	return wrap(ErrDelete, cause, fallback)
}

// Save wraps a rejected interview save.
func Save(cause error, fallback string) *AppError {
	return wrap(ErrSave, cause, fallback)
}

// MergeWarning wraps a failed interview-list fetch during a merge cycle.
func MergeWarning(cause error) *AppError {
	return wrap(ErrMergeWarning, cause, "Fetch interviews skipped")
}

func wrap(kind, cause error, fallback string) *AppError {
	return &AppError{
		Err:     kind,
		Message: Message(cause, fallback),
		Cause:   cause,
	}
}

// PayloadError is implemented by transport errors that carry a message
// taken from the server's response body.
type PayloadError interface {
	error
	ServerMessage() string
}

// Message derives a user-visible message with a fixed precedence:
//
//  1. the server-provided error payload, if the error carries one
//  2. the transport-level error text
//  3. fallback
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var pe PayloadError
	if errors.As(err, &pe) {
		if msg := pe.ServerMessage(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
