package dbpkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// PGError is the driver independent part of a postgres error.
type PGError struct {
	Code       string
	Constraint string
}

// AsPGError extracts the SQLSTATE code and the constraint name from an error
// returned by either lib/pq or pgx.
func AsPGError(err error) (PGError, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGError{Code: string(pqErr.Code), Constraint: pqErr.Constraint}, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return PGError{Code: pgErr.Code, Constraint: pgErr.ConstraintName}, true
	}

	return PGError{}, false
}

// IsViolation reports whether err violates the given constraint with the given SQLSTATE code.
func IsViolation(err error, code, constraint string) bool {
	pgErr, ok := AsPGError(err)
	if !ok {
		return false
	}

	return pgErr.Code == code && pgErr.Constraint == constraint
}
