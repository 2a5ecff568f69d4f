package postgresrepo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/resortbook/internal/pkg/errs"
	"github.com/kirinyoku/resortbook/internal/repository"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}

	return false
}

// translateDBErr marks driver errors with the repository sentinels. The
// driver error stays in the chain for logging.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Mark(err, repository.ErrNotFound)
	}

	if IsRetryable(err) {
		return errs.Mark(err, repository.ErrSerialization)
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) && pge.Code == codeUniqueViolation {
		return errs.Mark(err, repository.ErrConflict)
	}

	return err
}
