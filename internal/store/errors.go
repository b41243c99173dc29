package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/notedrop/internal/apperr"
)

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
}

// mapError translates driver errors into the apperr taxonomy.
func mapError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what)
	}
	if constraint, ok := uniqueViolation(err); ok {
		switch {
		case strings.Contains(constraint, "shares"):
			return fmt.Errorf("%s: %w", what, apperr.ErrAlreadyShared)
		case strings.Contains(constraint, "username"):
			return fmt.Errorf("%s: %w", what, apperr.ErrDuplicateUsername)
		case strings.Contains(constraint, "email"):
			return fmt.Errorf("%s: %w", what, apperr.ErrDuplicateEmail)
		default:
			return fmt.Errorf("%s: %w: %v", what, apperr.ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// uniqueViolation reports whether err is a unique-constraint failure and
// returns text naming the constraint: the SQLite message lists the columns,
// PostgreSQL provides the constraint name.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return sqliteErr.Error(), true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
