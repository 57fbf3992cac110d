package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every store implementation. Callers match with
// errors.Is; the concrete message carries the detail.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidAmount is a validation failure specific to non-positive amounts.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrValidation)
)

// ValidationErrorf builds a ValidationError with a formatted detail message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageErrorf wraps a storage-layer failure so callers can detect it with
// errors.Is(err, ErrStorageUnavailable) without losing the underlying cause.
func StorageErrorf(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
