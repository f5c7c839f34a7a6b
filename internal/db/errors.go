package db

import (
	"context" // Cancellation detection
	"errors"  // Error inspection
	"fmt"     // Error wrapping

	"kudo/internal/errs" // Error taxonomy

	mysqldriver "github.com/go-sql-driver/mysql" // MySQL error numbers
	"github.com/jackc/pgx/v5/pgconn"             // PostgreSQL error codes
	"github.com/mattn/go-sqlite3"                // SQLite extended codes
	"gorm.io/gorm"                               // ORM sentinel errors
)

const (
	pgUniqueViolation   = "23505" // unique_violation
	mysqlDuplicateEntry = 1062    // ER_DUP_ENTRY
)

// Classify maps a store error to the error taxonomy. Errors that already carry a
// kind are returned unchanged.
func Classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case hasKind(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", errs.ErrConflict, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", errs.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}
}

// unavailable wraps lifecycle failures (connect, migrate, drop), keeping cancellation distinct
func unavailable(ctx context.Context, err error) error {
	if hasKind(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
}

// IsUniqueViolation reports whether err is a unique or primary key violation from any supported driver
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func hasKind(err error) bool {
	return errors.Is(err, errs.ErrValidation) ||
		errors.Is(err, errs.ErrNotFound) ||
		errors.Is(err, errs.ErrConflict) ||
		errors.Is(err, errs.ErrCancelled) ||
		errors.Is(err, errs.ErrStoreUnavailable)
}
