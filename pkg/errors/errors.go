package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	ErrParcelNotFound      = fmt.Errorf("parcel %w", ErrNotFound)
	ErrTripNotFound        = fmt.Errorf("trip %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	// business rule violations
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrAlreadyMatched       = errors.New("parcel already matched")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrTripNotActive        = errors.New("trip is not active")
	ErrTransactionCompleted = errors.New("transaction already completed")
	ErrFlaggedContent       = errors.New("message contains flagged content")

	ErrNilParcel      = errors.New("parcel is nil")
	ErrNilTrip        = errors.New("trip is nil")
	ErrNilTransaction = errors.New("transaction is nil")
	ErrAuditWrite     = errors.New("audit write failed")

	ErrInternal = errors.New("internal error")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
