package lending

import (
	"context"
	"time"

	"github.com/MrSuraphong/library-testing/internal/model"
)

// CatalogStore is the engine's view of book storage.
//
// AdjustAvailability is the only write path for available copies and must
// be a single atomic check-and-write: two concurrent decrements of a book
// with one copy left must yield exactly one success and one
// ErrInsufficientCopies, and no interleaving may let the count go negative
// or exceed the total. Implementations must not serialize operations on
// different books against each other.
type CatalogStore interface {
	// GetBook returns the book or ErrNotFound.
	GetBook(ctx context.Context, id string) (*model.Book, error)

	// AdjustAvailability applies availableCopies += delta only if the
	// result stays within [0, totalCopies], returning the updated book.
	// It fails with ErrInsufficientCopies (delta < 0), ErrCapacityExceeded
	// (delta > 0) or ErrNotFound, performing no mutation on failure.
	AdjustAvailability(ctx context.Context, id string, delta int) (*model.Book, error)
}

// LoanLedger is the engine's view of transaction storage. Append-mostly:
// records are created by borrows, mutated exactly once by returns, and
// never deleted.
type LoanLedger interface {
	// CreateTransaction appends a new borrowed transaction with
	// BorrowDate set to now. Precondition checking is the engine's job.
	CreateTransaction(ctx context.Context, userID, bookID string) (*model.Transaction, error)

	// MarkReturned transitions borrowed -> returned and sets ReturnDate,
	// as a single compare-and-set on status. It fails with
	// ErrAlreadyReturned when the transaction is already returned and
	// ErrNotFound when the id is unknown.
	MarkReturned(ctx context.Context, id string, returnDate time.Time) (*model.Transaction, error)

	// FindActiveByUser returns the user's borrowed transactions ordered
	// by BorrowDate descending. Unknown users yield an empty slice.
	FindActiveByUser(ctx context.Context, userID string) ([]model.Transaction, error)

	// FindAllByUser returns the user's full history ordered by BorrowDate
	// descending. Unknown users yield an empty slice.
	FindAllByUser(ctx context.Context, userID string) ([]model.Transaction, error)
}
