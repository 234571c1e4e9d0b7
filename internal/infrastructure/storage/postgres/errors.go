package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"seqstore/internal/core/apperror"
)

// SQLSTATE codes the sequence store reacts to.
const (
	SQLStateUniqueViolation  = "23505"
	SQLStateLockNotAvailable = "55P03"
	SQLStateQueryCanceled    = "57014"
	SQLStateUndefinedTable   = "42P01"
)

// SQLState returns the SQLSTATE of a PostgreSQL error in the chain, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a duplicate key error.
func IsUniqueViolation(err error) bool {
	return SQLState(err) == SQLStateUniqueViolation
}

// IsLockNotAvailable reports a lock_timeout expiry or NOWAIT failure.
func IsLockNotAvailable(err error) bool {
	return SQLState(err) == SQLStateLockNotAvailable
}

// IsQueryCanceled reports a statement_timeout expiry or a cancel request.
func IsQueryCanceled(err error) bool {
	return SQLState(err) == SQLStateQueryCanceled
}

// IsUndefinedTable reports a reference to a table that does not exist.
func IsUndefinedTable(err error) bool {
	return SQLState(err) == SQLStateUndefinedTable
}

// TranslateError maps driver errors for the named sequence onto AppError.
// Errors already classified are returned unchanged.
func TranslateError(name, operation string, err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	switch {
	case IsUniqueViolation(err):
		return apperror.NewPersistenceConflict(name, operation).WithCause(err)
	case IsLockNotAvailable(err):
		return apperror.NewLockTimeout(name).WithCause(err)
	case IsQueryCanceled(err):
		return apperror.NewStatementTimeout(name).WithCause(err)
	case IsUndefinedTable(err):
		return apperror.NewTableMissing(name).WithCause(err)
	default:
		return apperror.NewDatabase(err).
			WithDetail("name", name).
			WithDetail("operation", operation)
	}
}
