package lending_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/memstore"
	"github.com/MrSuraphong/library-testing/internal/model"
)

// flakyLedger wraps a real ledger and fails CreateTransaction on demand.
type flakyLedger struct {
	lending.LoanLedger
	failCreate error
}

func (f *flakyLedger) CreateTransaction(ctx context.Context, userID, bookID string) (*model.Transaction, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return f.LoanLedger.CreateTransaction(ctx, userID, bookID)
}

// flakyCatalog wraps a real catalog and fails restock increments on demand.
type flakyCatalog struct {
	lending.CatalogStore
	failIncrement error
}

func (f *flakyCatalog) AdjustAvailability(ctx context.Context, id string, delta int) (*model.Book, error) {
	if delta > 0 && f.failIncrement != nil {
		return nil, f.failIncrement
	}
	return f.CatalogStore.AdjustAvailability(ctx, id, delta)
}

func newFixture(t *testing.T, copies int) (*memstore.Store, *lending.Engine, *model.Book) {
	t.Helper()
	store := memstore.New()
	book, err := store.CreateBook(context.Background(), model.CreateBookRequest{
		Title:    "The Go Programming Language",
		Author:   "Donovan & Kernighan",
		Quantity: copies,
	})
	require.NoError(t, err)
	return store, lending.NewEngine(store, store), book
}

func available(t *testing.T, store *memstore.Store, bookID string) int {
	t.Helper()
	book, err := store.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return book.AvailableCopies
}

// checkLedgerInvariant asserts availableCopies = totalCopies - active loans.
func checkLedgerInvariant(t *testing.T, store *memstore.Store, bookID string, users ...string) {
	t.Helper()
	ctx := context.Background()
	book, err := store.GetBook(ctx, bookID)
	require.NoError(t, err)

	active := 0
	for _, user := range users {
		loans, err := store.FindActiveByUser(ctx, user)
		require.NoError(t, err)
		for _, loan := range loans {
			if loan.BookID == bookID {
				active++
			}
		}
	}
	assert.Equal(t, book.TotalCopies-active, book.AvailableCopies)
	assert.GreaterOrEqual(t, book.AvailableCopies, 0)
	assert.LessOrEqual(t, book.AvailableCopies, book.TotalCopies)
}

func TestBorrow_DecrementsAndRecordsLoan(t *testing.T) {
	store, engine, book := newFixture(t, 3)
	ctx := context.Background()

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, book.ID, tx.BookID)
	assert.Equal(t, "user-1", tx.UserID)
	assert.Equal(t, model.StatusBorrowed, tx.Status)
	assert.False(t, tx.BorrowDate.IsZero())
	assert.Nil(t, tx.ReturnDate)
	assert.Equal(t, 2, available(t, store, book.ID))
	checkLedgerInvariant(t, store, book.ID, "user-1")
}

func TestBorrow_UnknownBook(t *testing.T) {
	_, engine, _ := newFixture(t, 1)

	tx, err := engine.Borrow(context.Background(), "user-1", "no-such-book")
	assert.ErrorIs(t, err, lending.ErrNotFound)
	assert.Nil(t, tx)
}

func TestBorrow_ExhaustsCopies(t *testing.T) {
	store, engine, book := newFixture(t, 3)
	ctx := context.Background()

	for i, want := range []int{2, 1, 0} {
		user := fmt.Sprintf("user-%d", i+1)
		_, err := engine.Borrow(ctx, user, book.ID)
		require.NoError(t, err)
		assert.Equal(t, want, available(t, store, book.ID))
	}

	tx, err := engine.Borrow(ctx, "user-4", book.ID)
	assert.ErrorIs(t, err, lending.ErrInsufficientCopies)
	assert.Nil(t, tx)
	assert.Equal(t, 0, available(t, store, book.ID))

	// The failed borrow must leave no trace in the ledger.
	history, err := engine.History(ctx, "user-4")
	require.NoError(t, err)
	assert.Empty(t, history)
	checkLedgerInvariant(t, store, book.ID, "user-1", "user-2", "user-3", "user-4")
}

func TestBorrow_CompensatesWhenLedgerFails(t *testing.T) {
	store, _, book := newFixture(t, 3)
	ctx := context.Background()

	ledger := &flakyLedger{LoanLedger: store, failCreate: errors.New("ledger down")}
	engine := lending.NewEngine(store, ledger)

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.Error(t, err)
	assert.Nil(t, tx)

	// The decrement must be reversed: availability back at its
	// pre-borrow value and no transaction recorded.
	assert.Equal(t, 3, available(t, store, book.ID))
	history, err := engine.History(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// The ledger recovers and borrowing works again.
	ledger.failCreate = nil
	_, err = engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, available(t, store, book.ID))
}

func TestReturn_RestocksAndMarksReturned(t *testing.T) {
	store, engine, book := newFixture(t, 3)
	ctx := context.Background()

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, available(t, store, book.ID))

	returnDate := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	returned, err := engine.Return(ctx, tx.ID, returnDate)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, returned.ID)
	assert.Equal(t, model.StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, returnDate, *returned.ReturnDate)
	assert.Equal(t, 3, available(t, store, book.ID))
	checkLedgerInvariant(t, store, book.ID, "user-1")
}

func TestReturn_UsesEngineClockWhenDateOmitted(t *testing.T) {
	store, engine, book := newFixture(t, 1)
	ctx := context.Background()

	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return fixed })

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)

	returned, err := engine.Return(ctx, tx.ID, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, fixed, *returned.ReturnDate)
	assert.Equal(t, 1, available(t, store, book.ID))
}

func TestReturn_SecondAttemptFails(t *testing.T) {
	store, engine, book := newFixture(t, 3)
	ctx := context.Background()

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)

	_, err = engine.Return(ctx, tx.ID, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 3, available(t, store, book.ID))

	_, err = engine.Return(ctx, tx.ID, time.Now().UTC())
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned)

	// Availability went up by exactly one in total, not two.
	assert.Equal(t, 3, available(t, store, book.ID))
	checkLedgerInvariant(t, store, book.ID, "user-1")
}

func TestReturn_UnknownTransaction(t *testing.T) {
	store, engine, book := newFixture(t, 2)
	ctx := context.Background()

	_, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)

	_, err = engine.Return(ctx, "no-such-transaction", time.Now().UTC())
	assert.ErrorIs(t, err, lending.ErrNotFound)
	assert.Equal(t, 1, available(t, store, book.ID))
}

func TestReturn_SurfacesInventoryDiscrepancy(t *testing.T) {
	store, _, book := newFixture(t, 2)
	ctx := context.Background()

	catalog := &flakyCatalog{CatalogStore: store}
	engine := lending.NewEngine(catalog, store)

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, available(t, store, book.ID))

	catalog.failIncrement = errors.New("catalog down")
	returned, err := engine.Return(ctx, tx.ID, time.Now().UTC())

	var discrepancy *lending.InventoryDiscrepancyError
	require.ErrorAs(t, err, &discrepancy)
	assert.Equal(t, tx.ID, discrepancy.TransactionID)
	assert.Equal(t, book.ID, discrepancy.BookID)

	// The return stays committed: transaction handed back in its
	// terminal state, ledger updated, inventory not restocked.
	require.NotNil(t, returned)
	assert.Equal(t, model.StatusReturned, returned.Status)
	assert.Equal(t, 1, available(t, store, book.ID))

	loans, err := engine.ActiveLoans(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, loans)

	// A repeated return must not slip in a second ledger mutation.
	_, err = engine.Return(ctx, tx.ID, time.Now().UTC())
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned)
}

func TestBorrow_ConcurrentSingleCopy(t *testing.T) {
	const attempts = 32

	store, engine, book := newFixture(t, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Borrow(ctx, fmt.Sprintf("user-%d", i), book.ID)
		}(i)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, lending.ErrInsufficientCopies):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, insufficient)
	assert.Equal(t, 0, available(t, store, book.ID))
}

func TestReturn_ConcurrentSameLoan(t *testing.T) {
	const attempts = 16

	store, engine, book := newFixture(t, 4)
	ctx := context.Background()

	tx, err := engine.Borrow(ctx, "user-1", book.ID)
	require.NoError(t, err)
	require.Equal(t, 3, available(t, store, book.ID))

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Return(ctx, tx.ID, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	successes, alreadyReturned := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, lending.ErrAlreadyReturned):
			alreadyReturned++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, alreadyReturned)

	// Exactly one restock happened.
	assert.Equal(t, 4, available(t, store, book.ID))
	checkLedgerInvariant(t, store, book.ID, "user-1")
}

func TestBorrowReturn_ConcurrentChurnKeepsInvariant(t *testing.T) {
	const (
		workers = 8
		rounds  = 25
	)

	store, engine, book := newFixture(t, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", w)
			for i := 0; i < rounds; i++ {
				tx, err := engine.Borrow(ctx, user, book.ID)
				if errors.Is(err, lending.ErrInsufficientCopies) {
					continue
				}
				if err != nil {
					t.Errorf("borrow: %v", err)
					return
				}
				if _, err := engine.Return(ctx, tx.ID, time.Now().UTC()); err != nil {
					t.Errorf("return: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// All loans were returned, so the full stock is back.
	assert.Equal(t, 3, available(t, store, book.ID))
	users := make([]string, workers)
	for w := range users {
		users[w] = fmt.Sprintf("user-%d", w)
	}
	checkLedgerInvariant(t, store, book.ID, users...)
}
