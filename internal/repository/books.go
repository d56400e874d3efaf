package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

const bookColumns = `id, title, author, total_copies, available_copies, cover_image, created_at, updated_at`

// BookRepository handles persistence for catalog entries.
type BookRepository struct {
	db *pgxpool.Pool
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *pgxpool.Pool) *BookRepository {
	return &BookRepository{db: db}
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies,
		&b.CoverImage, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new catalog entry with all copies available.
func (r *BookRepository) CreateBook(ctx context.Context, req model.CreateBookRequest) (*model.Book, error) {
	now := time.Now().UTC()
	book := &model.Book{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Author:          req.Author,
		TotalCopies:     req.Quantity,
		AvailableCopies: req.Quantity,
		CoverImage:      req.CoverImage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO books (id, title, author, total_copies, available_copies, cover_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		book.ID, book.Title, book.Author, book.TotalCopies, book.AvailableCopies,
		book.CoverImage, book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// ListBooks returns all books ordered by creation time descending.
func (r *BookRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// GetBook returns a single book or lending.ErrNotFound.
func (r *BookRepository) GetBook(ctx context.Context, id string) (*model.Book, error) {
	b, err := scanBook(r.db.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// AdjustAvailability applies availableCopies += delta as one conditional
// UPDATE, so the check and the write are indivisible for concurrent
// callers and rows for different books never block each other. A zero-row
// result is classified afterwards with a plain read; that read only picks
// the error to report, it never mutates.
func (r *BookRepository) AdjustAvailability(ctx context.Context, id string, delta int) (*model.Book, error) {
	b, err := scanBook(r.db.QueryRow(ctx,
		`UPDATE books
		 SET available_copies = available_copies + $2, updated_at = $3
		 WHERE id = $1
		   AND available_copies + $2 >= 0
		   AND available_copies + $2 <= total_copies
		 RETURNING `+bookColumns,
		id, delta, time.Now().UTC(),
	))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjust availability: %w", err)
	}

	if _, getErr := r.GetBook(ctx, id); getErr != nil {
		return nil, getErr
	}
	if delta < 0 {
		return nil, lending.ErrInsufficientCopies
	}
	return nil, lending.ErrCapacityExceeded
}

// UpdateBook edits a catalog entry inside a transaction that locks the
// book row. When TotalCopies changes, available is re-derived from the
// active loan count; shrinking the total below that count fails with
// lending.ErrConflict.
func (r *BookRepository) UpdateBook(ctx context.Context, id string, req model.UpdateBookRequest) (_ *model.Book, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	b, err := scanBook(tx.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lending.ErrNotFound
		}
		return nil, fmt.Errorf("lock book row: %w", err)
	}

	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		b.Author = strings.TrimSpace(*req.Author)
	}
	if req.CoverImage != nil {
		b.CoverImage = *req.CoverImage
	}
	if req.TotalCopies != nil {
		var active int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM transactions WHERE book_id = $1 AND status = $2`,
			id, model.StatusBorrowed,
		).Scan(&active)
		if err != nil {
			return nil, fmt.Errorf("count active loans: %w", err)
		}
		if *req.TotalCopies < active {
			return nil, lending.ErrConflict
		}
		b.TotalCopies = *req.TotalCopies
		b.AvailableCopies = *req.TotalCopies - active
	}
	b.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx,
		`UPDATE books
		 SET title = $2, author = $3, total_copies = $4, available_copies = $5,
		     cover_image = $6, updated_at = $7
		 WHERE id = $1`,
		b.ID, b.Title, b.Author, b.TotalCopies, b.AvailableCopies, b.CoverImage, b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return b, nil
}

// DeleteBook removes a catalog entry. It locks the row and checks for
// unreturned loans in the same transaction, failing with
// lending.ErrConflict while any exist. Returned history keeps its book_id
// but is never a deletion blocker.
func (r *BookRepository) DeleteBook(ctx context.Context, id string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var bookID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM books WHERE id = $1 FOR UPDATE`, id,
	).Scan(&bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lending.ErrNotFound
		}
		return fmt.Errorf("lock book row: %w", err)
	}

	var active int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE book_id = $1 AND status = $2`,
		id, model.StatusBorrowed,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("count active loans: %w", err)
	}
	if active > 0 {
		return lending.ErrConflict
	}

	if _, err = tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return tx.Commit(ctx)
}
