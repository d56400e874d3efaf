// Package repository implements the postgres-backed stores for the library
// lending system. It uses pgx directly (no ORM) for transparency and
// performance; domain errors are the sentinels of the lending package so
// callers never branch on driver errors.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
