// Package migrations embeds the SQL schema for both storage backends and
// wraps golang-migrate around it.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RequiredSchemaVersion is the schema version this binary expects.
// Bump it whenever a new migration pair is added.
const RequiredSchemaVersion uint = 1

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect names the SQL flavour of a database handle.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Source returns the embedded migration files for d.
func Source(d Dialect) (fs.FS, error) {
	switch d {
	case Postgres, SQLite:
		return fs.Sub(files, string(d))
	default:
		return nil, fmt.Errorf("unknown dialect %q", d)
	}
}

// New builds a migrator over an already open database handle.
// Closing the returned migrator closes db as well.
func New(db *sql.DB, d Dialect) (*migrate.Migrate, error) {
	sub, err := Source(d)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create embed source: %w", err)
	}

	var drv database.Driver
	switch d {
	case Postgres:
		drv, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case SQLite:
		drv, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("create %s migrate driver: %w", d, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(d), drv)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. No pending migration is not an error.
func Up(db *sql.DB, d Dialect) error {
	m, err := New(db, d)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
