package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation checks for a unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}

// nullIfEmpty maps "" to NULL so optional text columns stay NULL-clean.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
