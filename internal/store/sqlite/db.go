// Package sqlite implements the stores on an embedded SQLite database
// (standalone mode).
package sqlite

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/npcforge/npcforge/internal/store"
	"github.com/npcforge/npcforge/internal/store/migrations"
)

// Open opens the database file, creating its directory when needed.
// The schema is left untouched.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	// SQLite serialises writers; one connection keeps placement checks atomic.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// OpenDB is Open followed by applying pending migrations.
func OpenDB(path string) (*sqlx.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db.DB, migrations.SQLite); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("close database after migration failure", "error", closeErr)
		}
		return nil, err
	}
	slog.Debug("sqlite ready", "path", path)
	return db, nil
}

// NewSQLiteStores creates all stores backed by SQLite.
func NewSQLiteStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	scope := cfg.PlacementScope
	if scope == "" {
		scope = store.PlacementServer
	}

	return &store.Stores{
		Bots:     NewBotStore(db, scope),
		Entities: NewEntityStore(db),
		Close:    db.Close,
	}, nil
}
