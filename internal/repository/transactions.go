package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

const transactionColumns = `id, book_id, user_id, status, borrow_date, return_date`

// TransactionRepository handles persistence for the loan ledger.
// Append-mostly: rows are inserted by borrows, mutated exactly once by
// returns and never deleted.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.BookID, &t.UserID, &t.Status, &t.BorrowDate, &t.ReturnDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransaction appends a new borrowed transaction.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, userID, bookID string) (*model.Transaction, error) {
	tx := &model.Transaction{
		ID:         uuid.New().String(),
		BookID:     bookID,
		UserID:     userID,
		Status:     model.StatusBorrowed,
		BorrowDate: time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions (id, book_id, user_id, status, borrow_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		tx.ID, tx.BookID, tx.UserID, tx.Status, tx.BorrowDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// MarkReturned transitions borrowed -> returned as a single compare-and-set
// on status, so two concurrent returns of the same loan yield exactly one
// success. A zero-row result is classified with a follow-up read into
// lending.ErrNotFound or lending.ErrAlreadyReturned.
func (r *TransactionRepository) MarkReturned(ctx context.Context, id string, returnDate time.Time) (*model.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`UPDATE transactions
		 SET status = $2, return_date = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+transactionColumns,
		id, model.StatusReturned, returnDate, model.StatusBorrowed,
	))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark returned: %w", err)
	}

	var status model.LoanStatus
	err = r.db.QueryRow(ctx,
		`SELECT status FROM transactions WHERE id = $1`, id,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("classify return failure: %w", err)
	}
	return nil, lending.ErrAlreadyReturned
}

// FindActiveByUser returns the user's borrowed transactions, newest first.
func (r *TransactionRepository) FindActiveByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	return r.findByUser(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1 AND status = $2
		 ORDER BY borrow_date DESC`,
		userID, model.StatusBorrowed,
	)
}

// FindAllByUser returns the user's full history, newest first.
func (r *TransactionRepository) FindAllByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	return r.findByUser(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY borrow_date DESC`,
		userID,
	)
}

func (r *TransactionRepository) findByUser(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
