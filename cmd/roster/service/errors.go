package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports bad caller input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a request that contradicts stored state, such as a
// duplicate name or deleting a participant who still has purchases
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError reports a missing participant or purchase
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// StorageError wraps a backend failure. Its message is safe to show clients;
// the cause is for logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ReorderError reports a failed reorder transaction. Nothing was written.
type ReorderError struct {
	Err error
}

func (e *ReorderError) Error() string { return fmt.Sprintf("reorder failed: %v", e.Err) }
func (e *ReorderError) Unwrap() error { return e.Err }

// Reconciliation phases
const (
	PhasePurchase = "purchase"
	PhaseReorder  = "reorder"
)

// ReconciliationError reports a failed out-of-order purchase. Phase names the
// step that failed; both steps share one transaction, so neither is kept.
type ReconciliationError struct {
	Phase string
	Err   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("out-of-order purchase failed during %s: %v", e.Phase, e.Err)
}
func (e *ReconciliationError) Unwrap() error { return e.Err }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// HTTPStatus maps an error to the response status and client-facing message.
// Anything outside the taxonomy is a 500 with a generic message.
func HTTPStatus(err error, fallback string) (int, string) {
	var (
		validation *ValidationError
		conflict   *ConflictError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &conflict):
		return http.StatusBadRequest, conflict.Message
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Message
	default:
		return http.StatusInternalServerError, fallback
	}
}
