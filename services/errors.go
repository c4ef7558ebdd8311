package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the four terminal outcomes a service call can have.
// Callers match with errors.Is; none of them is retryable except ErrStore.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrStore            = errors.New("store failure")
)

// NotFoundError carries the kind of record that was missing while still
// matching ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StoreError wraps an underlying database error. The cause is for server-side
// logs only and must never be echoed to the client.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return "store failure during " + e.Op + ": " + e.Cause.Error()
}

func (e *StoreError) Unwrap() error { return e.Cause }

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// ErrorToStatus maps a service error to its HTTP status code.
func ErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to send back to the caller.
// Permission and store failures get a generic message; detail stays in logs.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return err.Error()
	case errors.Is(err, ErrPermissionDenied):
		return "you do not have permission to perform this action"
	default:
		return "something went wrong, please try again"
	}
}
