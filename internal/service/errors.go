package service

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when the referenced room type or
	// ticket type does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrReservationNotFound is returned when the referenced reservation
	// does not exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInvalidStateTransition is returned when an operation is applied to
	// a reservation whose status does not permit it, e.g. confirming a
	// CONFIRMED or CANCELLED reservation.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrTransientConflict is returned after bounded retries of a confirm
	// transaction all failed on serialization conflicts. The caller may retry.
	ErrTransientConflict = errors.New("transient transaction conflict, retry later")
)

// ValidationError rejects a request before any persistence happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
