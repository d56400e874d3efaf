// Package lending implements the lending transaction engine: the only
// component allowed to mutate both the catalog and the ledger in one
// operation. A borrow or return either fully succeeds, leaving both stores
// consistent, or fully fails with no partial mutation visible to any other
// caller.
package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSuraphong/library-testing/internal/model"
)

// Engine orchestrates borrow and return operations across an injected
// CatalogStore and LoanLedger.
type Engine struct {
	catalog CatalogStore
	ledger  LoanLedger
	now     func() time.Time
}

// NewEngine constructs an Engine with its store dependencies.
func NewEngine(catalog CatalogStore, ledger LoanLedger) *Engine {
	return &Engine{
		catalog: catalog,
		ledger:  ledger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine's clock. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Borrow takes one copy of the book for the user and records the loan.
//
// The availability decrement is the atomic unit: when it fails with
// ErrInsufficientCopies or ErrNotFound no transaction is created and no
// state changes. If the ledger append fails after the decrement has
// committed, the decrement is compensated before the failure is reported,
// restoring availableCopies to its pre-borrow value. That compensating
// increment is the engine's only failure-recovery path.
func (e *Engine) Borrow(ctx context.Context, userID, bookID string) (*model.Transaction, error) {
	if _, err := e.catalog.AdjustAvailability(ctx, bookID, -1); err != nil {
		return nil, err
	}

	tx, err := e.ledger.CreateTransaction(ctx, userID, bookID)
	if err != nil {
		if _, undoErr := e.catalog.AdjustAvailability(ctx, bookID, +1); undoErr != nil {
			return nil, fmt.Errorf("record loan: %w (compensation also failed: %v)", err, undoErr)
		}
		return nil, fmt.Errorf("record loan: %w", err)
	}
	return tx, nil
}

// Return marks the transaction returned and puts the copy back in
// circulation.
//
// The ledger compare-and-set commits first; ErrAlreadyReturned and
// ErrNotFound propagate with no inventory change. If the follow-up
// availability increment fails the return stays committed and the
// transaction is handed back together with an *InventoryDiscrepancyError.
// Rolling the ledger back would violate its terminal-state guarantee, and
// retrying the increment could double-count.
func (e *Engine) Return(ctx context.Context, transactionID string, returnDate time.Time) (*model.Transaction, error) {
	if returnDate.IsZero() {
		returnDate = e.now()
	}

	tx, err := e.ledger.MarkReturned(ctx, transactionID, returnDate)
	if err != nil {
		return nil, err
	}

	if _, err := e.catalog.AdjustAvailability(ctx, tx.BookID, +1); err != nil {
		return tx, &InventoryDiscrepancyError{
			TransactionID: tx.ID,
			BookID:        tx.BookID,
			Cause:         err,
		}
	}
	return tx, nil
}
