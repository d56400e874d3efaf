package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the tables and indexes on startup when they do not
// exist yet. The CHECK constraint on books is a backstop; the invariant is
// enforced by the conditional updates in the repository layer.
//
// transactions.book_id deliberately carries no foreign key: history is
// permanent, and a book may be deleted once no unreturned loans reference
// it even though returned rows still do.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			total_copies INT NOT NULL CHECK (total_copies >= 0),
			available_copies INT NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
			cover_image TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			book_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('borrowed', 'returned')),
			borrow_date TIMESTAMPTZ NOT NULL,
			return_date TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			profile_picture TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_borrow
			ON transactions (user_id, borrow_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_book_status
			ON transactions (book_id, status)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
