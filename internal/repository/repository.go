package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would break a constraint
var ErrConflict = errors.New("conflict")

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reports a unique_violation from PostgreSQL
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nonNil keeps NULL out of NOT NULL array columns
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
