package lending

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested book, transaction or user does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientCopies is returned when a borrow would drive a book's
// available copies below zero.
var ErrInsufficientCopies = errors.New("no copies available")

// ErrCapacityExceeded is returned when an availability adjustment would
// push available copies above the book's total.
var ErrCapacityExceeded = errors.New("available copies would exceed total")

// ErrAlreadyReturned is returned on an attempt to return a transaction
// that has already reached its terminal returned state.
var ErrAlreadyReturned = errors.New("transaction already returned")

// ErrConflict is returned when an administrative mutation would break the
// ledger invariant, e.g. deleting a book with open loans or shrinking its
// total below the number of copies currently out.
var ErrConflict = errors.New("conflicting active loans")

// InventoryDiscrepancyError reports that a return committed in the ledger
// but the follow-up availability increment failed. The transaction stays
// returned; the discrepancy is surfaced, never rolled back and never
// retried, since un-returning would break the terminal-state guarantee and
// a blind retry could double-increment.
type InventoryDiscrepancyError struct {
	TransactionID string
	BookID        string
	Cause         error
}

func (e *InventoryDiscrepancyError) Error() string {
	return fmt.Sprintf("inventory discrepancy: transaction %s returned but book %s not restocked: %v",
		e.TransactionID, e.BookID, e.Cause)
}

func (e *InventoryDiscrepancyError) Unwrap() error {
	return e.Cause
}
