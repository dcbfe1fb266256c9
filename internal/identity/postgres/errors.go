/*
PostgreSQL error mapping for the identity store.

Converts pgx/pgconn errors into identity.StorageError categories, keeping
internal detail out of caller-facing messages. Adapted from
database-vault/storage/postgresql/errors.go.
*/
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gatekeeperd/internal/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func mapPostgreSQLError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return identity.NewStorageError(
			identity.ErrorNotFound,
			operation,
			fmt.Sprintf("no row found: %v", err),
			"identity not found",
		)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return identity.NewStorageError(
				identity.ErrorAlreadyExists,
				operation,
				fmt.Sprintf("unique constraint violation: %v", pgErr.Detail),
				"username already registered",
			)
		case "23514": // check_violation
			return identity.NewStorageError(
				identity.ErrorInvalidData,
				operation,
				fmt.Sprintf("check constraint violation: %v", pgErr.Detail),
				"invalid identity data",
			)
		case "08000", "08003", "08006", "08001", "08004":
			return identity.NewStorageError(
				identity.ErrorConnection,
				operation,
				fmt.Sprintf("connection error: %v", pgErr.Message),
				"database connection unavailable",
			)
		case "40P01": // deadlock_detected
			return identity.NewStorageError(
				identity.ErrorTransactionFailed,
				operation,
				"deadlock detected",
				"database conflict, please retry",
			)
		case "40001": // serialization_failure
			return identity.NewStorageError(
				identity.ErrorTransactionFailed,
				operation,
				"serialization failure",
				"database conflict, please retry",
			)
		case "55P03": // lock_not_available
			return identity.NewStorageError(
				identity.ErrorTransactionFailed,
				operation,
				fmt.Sprintf("lock timeout: %v", pgErr.Message),
				"database operation timeout",
			)
		}
	}

	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "timeout") {
		return identity.NewStorageError(
			identity.ErrorConnection,
			operation,
			fmt.Sprintf("connection pool error: %v", err),
			"database connection error",
		)
	}

	return identity.NewStorageError(
		identity.ErrorUnknown,
		operation,
		fmt.Sprintf("unexpected database error: %v", err),
		"storage operation failed",
	)
}

func isRetryableError(err error) bool {
	var storageErr *identity.StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Retryable()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001", "55P03", "08000", "08003", "08006":
			return true
		}
	}

	return false
}
