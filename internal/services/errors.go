package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"trohub/app/internal/billing"
	"trohub/app/internal/db"
	"trohub/app/internal/utils"
)

// ValidationError is a schema or business-rule violation the caller can fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func notFound(resource string, id utils.SixID) error {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// PermissionError means the actor may not touch a resource they don't own.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// ConflictError means the write clashes with existing state: duplicates,
// overlapping contracts, dependent records, concurrent edits.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// lookupErr maps ErrNoDocuments to a NotFoundError and wraps anything else.
func lookupErr(err error, resource string, id utils.SixID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(resource, id)
	}
	return fmt.Errorf("error finding %s %s: %w", resource, id.String(), err)
}

// writeErr turns duplicate key failures into a ConflictError.
func writeErr(err error, duplicateMsg string) error {
	if db.IsDuplicateKey(err) {
		return &ConflictError{Message: duplicateMsg}
	}
	return err
}

// ledgerErr surfaces payment rule violations as validation failures.
func ledgerErr(err error) error {
	switch {
	case errors.Is(err, billing.ErrNonPositiveAmount),
		errors.Is(err, billing.ErrExceedsRemaining),
		errors.Is(err, billing.ErrTransferInfoRequired),
		errors.Is(err, billing.ErrUnknownMethod),
		errors.Is(err, billing.ErrReversalExceedsPaid):
		return &ValidationError{Message: err.Error()}
	}
	return err
}
