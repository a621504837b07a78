// Package apperr defines the error taxonomy shared by services and handlers.
//
// Services wrap one of the sentinels with a human-readable message; callers
// classify with errors.Is and handlers translate with StatusOf.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrPolicy          = errors.New("policy violation")
	ErrDownstream      = errors.New("downstream failure")

	// ErrConflict is a policy violation caused by an equivalent pending record.
	ErrConflict = fmt.Errorf("%w: conflict", ErrPolicy)
)

// Unauthenticated wraps ErrUnauthenticated with msg.
func Unauthenticated(msg string) error { return fmt.Errorf("%w: %s", ErrUnauthenticated, msg) }

// Forbidden wraps ErrForbidden with msg.
func Forbidden(msg string) error { return fmt.Errorf("%w: %s", ErrForbidden, msg) }

// NotFound wraps ErrNotFound with msg.
func NotFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// Validation wraps ErrValidation with msg.
func Validation(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

// Policy wraps ErrPolicy with msg.
func Policy(msg string) error { return fmt.Errorf("%w: %s", ErrPolicy, msg) }

// Conflict wraps ErrConflict with msg.
func Conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// Downstream wraps a store or transport failure. The original error stays
// reachable through errors.Is/As.
func Downstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDownstream, op, err)
}

// StatusOf maps err onto an HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPolicy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDownstream):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Code returns a short machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPolicy):
		return "policy_error"
	case errors.Is(err, ErrDownstream):
		return "downstream_failure"
	}
	return "internal_error"
}
