package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending schema migrations for the active dialect. It
// uses its own connection, which is closed when it returns.
func (db *DB) Migrate() error {
	if db.dsn == "" {
		return fmt.Errorf("store: migrate: database was not opened with a DSN")
	}
	dir := "migrations/sqlite"
	if db.dialect == DialectPostgres {
		dir = "migrations/postgres"
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}

	conn, err := sqlx.Open(string(db.dialect), db.dsn)
	if err != nil {
		return fmt.Errorf("store: migrate: open db: %w", err)
	}

	var drv database.Driver
	switch db.dialect {
	case DialectPostgres:
		drv, err = migratepgx.WithInstance(conn.DB, &migratepgx.Config{})
	default:
		drv, err = migratesqlite.WithInstance(conn.DB, &migratesqlite.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("store: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(db.dialect), drv)
	if err != nil {
		conn.Close()
		return fmt.Errorf("store: migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}
