package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/npcforge/npcforge/internal/config"
	"github.com/npcforge/npcforge/internal/store"
	"github.com/npcforge/npcforge/internal/store/migrations"
	"github.com/npcforge/npcforge/internal/store/pg"
	"github.com/npcforge/npcforge/internal/store/sqlite"
)

// openStores opens the backend selected by config. Managed mode gates on the
// Postgres schema version; standalone mode migrates SQLite on open.
func openStores(cfg *config.Config) (*store.Stores, error) {
	sc := store.StoreConfig{
		Mode:           cfg.Database.Mode,
		PostgresDSN:    cfg.Database.PostgresDSN,
		SQLitePath:     config.ExpandHome(cfg.Database.SQLitePath),
		PlacementScope: store.PlacementScope(cfg.Routing.PlacementScope),
	}

	if cfg.IsManagedMode() {
		if err := checkSchemaOrAutoUpgrade(sc.PostgresDSN); err != nil {
			return nil, err
		}
		return pg.NewPGStores(sc)
	}
	return sqlite.NewSQLiteStores(sc)
}

// checkSchemaOrAutoUpgrade refuses to start against an incompatible
// Postgres schema. If NPCFORGE_AUTO_UPGRADE=true an outdated schema is
// migrated in place.
func checkSchemaOrAutoUpgrade(dsn string) error {
	db, err := pg.OpenDB(dsn)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	defer db.Close()

	s, err := migrations.CheckSchema(db)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	schemaErr := s.Err()
	if schemaErr == nil {
		slog.Info("schema check passed", "current", s.CurrentVersion, "required", s.RequiredVersion)
		return nil
	}
	if !errors.Is(schemaErr, migrations.ErrSchemaOutdated) || os.Getenv("NPCFORGE_AUTO_UPGRADE") != "true" {
		return schemaErr
	}

	slog.Info("auto-upgrade: applying migrations", "from", s.CurrentVersion, "to", s.RequiredVersion)
	return migrateUp(db, migrations.Postgres)
}

func migrateUp(db *sql.DB, d migrations.Dialect) error {
	if err := migrations.Up(db, d); err != nil {
		return err
	}
	slog.Info("migration complete", "dialect", d, "version", migrations.RequiredSchemaVersion)
	return nil
}
