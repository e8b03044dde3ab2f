package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientInventory is returned when a conditional ledger debit
	// matches zero rows (capacity short or ledger row missing for a date).
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrDuplicateInventory is returned when a ledger row for a
	// (product, date) pair already exists. Rows are never silently overwritten.
	ErrDuplicateInventory = errors.New("inventory record already exists")

	// ErrLedgerInconsistent is returned when a credit touches fewer rows than
	// the reservation's date range, which should never happen.
	ErrLedgerInconsistent = errors.New("ledger credit touched unexpected row count")
)

// Postgres SQLSTATE codes that indicate the transaction should be retried.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// IsSerializationFailure reports whether err is a transient transaction
// conflict (serialization failure or deadlock) worth retrying.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgSerializationFailure || code == pgDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
