// Package store persists users, notes, folders, files and shares in SQLite or
// PostgreSQL.
//
// Cascades are explicit: every multi-statement operation runs in a single
// transaction and deletes dependents in a fixed order before their parent.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/notedrop/internal/models"
)

// Dialect identifies the SQL backend. Its value is the database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q", driver)
	}
}

const sqlitePragmas = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Repository defines the persistence operations used by the service layer.
// Consumers depend on this interface rather than *DB so tests can inject
// failures.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error)
	DeleteUser(ctx context.Context, id int64, beforeCommit func([]models.File) error) error

	CreateNote(ctx context.Context, n *models.Note) error
	NoteByID(ctx context.Context, id int64) (*models.Note, error)
	UpdateNote(ctx context.Context, n *models.Note) error
	DeleteNote(ctx context.Context, id int64) error
	NotesByOwner(ctx context.Context, ownerID int64) ([]models.Note, error)
	PublicNotes(ctx context.Context, limit int) ([]models.Note, error)
	NotesSharedWith(ctx context.Context, userID int64) ([]models.Note, error)

	CreateFolder(ctx context.Context, f *models.Folder) error
	FolderByID(ctx context.Context, id int64) (*models.Folder, error)
	UpdateFolder(ctx context.Context, f *models.Folder) error
	DeleteFolder(ctx context.Context, id int64, beforeCommit func([]models.File) error) error
	FoldersByOwner(ctx context.Context, ownerID int64) ([]models.Folder, error)
	PublicFolders(ctx context.Context, limit int) ([]models.Folder, error)
	FoldersSharedWith(ctx context.Context, userID int64) ([]models.Folder, error)

	CreateFiles(ctx context.Context, files []models.File) error
	FileByID(ctx context.Context, id int64) (*models.File, error)
	FilesInFolder(ctx context.Context, folderID int64) ([]models.File, error)
	DeleteFile(ctx context.Context, id int64, beforeCommit func(models.File) error) error

	CreateNoteShare(ctx context.Context, s *models.NoteShare) error
	CreateFolderShare(ctx context.Context, s *models.FolderShare) error
	DeleteNoteShare(ctx context.Context, noteID, userID int64) error
	DeleteFolderShare(ctx context.Context, folderID, userID int64) error
	NoteGrantees(ctx context.Context, noteID int64) ([]int64, error)
	FolderGrantees(ctx context.Context, folderID int64) ([]int64, error)
	NoteShares(ctx context.Context, noteID int64) ([]models.Grant, error)
	FolderShares(ctx context.Context, folderID int64) ([]models.Grant, error)
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)

// DB wraps a sqlx.DB with dialect-aware query building.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
	dsn     string
	sb      sq.StatementBuilderType
	now     func() time.Time
}

// Open connects to the database. For SQLite dsn is a file path and the
// connection pragmas are appended.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite && !strings.Contains(dsn, "?") {
		dsn += "?" + sqlitePragmas
	}
	conn, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if dialect == DialectSQLite {
		// A single writer connection avoids SQLITE_BUSY on lock upgrades.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	db := New(conn, dialect)
	db.dsn = dsn
	return db, nil
}

// New wraps an existing connection.
func New(conn *sqlx.DB, dialect Dialect) *DB {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		format = sq.Dollar
	}
	return &DB{
		conn:    conn,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(format),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dialect returns the active backend.
func (db *DB) Dialect() Dialect { return db.dialect }

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// inTx runs fn in a transaction and commits when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (db *DB) get(ctx context.Context, q sqlx.QueryerContext, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("store: build query: %w", err)
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func (db *DB) selectAll(ctx context.Context, q sqlx.QueryerContext, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("store: build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func (db *DB) exec(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build query: %w", err)
	}
	return e.ExecContext(ctx, query, args...)
}

// execOne runs b and reports apperr.ErrNotFound when no row was affected.
func (db *DB) execOne(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer, what string) error {
	res, err := db.exec(ctx, e, b)
	if err != nil {
		return mapError(what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return notFound(what)
	}
	return nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
