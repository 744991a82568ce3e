package migrations

import (
	"database/sql"
	"errors"
	"fmt"
)

// SchemaStatus is the result of comparing the database schema with
// RequiredSchemaVersion.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
	NeedsMigration  bool
}

var (
	ErrSchemaOutdated = errors.New("database schema is outdated")
	ErrSchemaDirty    = errors.New("database schema is dirty (failed migration)")
	ErrSchemaAhead    = errors.New("database schema is newer than this binary")
)

// CheckSchema reads golang-migrate's bookkeeping table. A missing table or
// row means a fresh database that needs migrating.
func CheckSchema(db *sql.DB) (*SchemaStatus, error) {
	s := &SchemaStatus{RequiredVersion: RequiredSchemaVersion}

	var version int64
	err := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &s.Dirty)
	if err != nil {
		s.NeedsMigration = true
		return s, nil
	}
	if version < 0 {
		s.NeedsMigration = true
		return s, nil
	}
	s.CurrentVersion = uint(version)

	if s.Dirty {
		return s, nil
	}
	switch {
	case s.CurrentVersion == RequiredSchemaVersion:
		s.Compatible = true
	case s.CurrentVersion < RequiredSchemaVersion:
		s.NeedsMigration = true
	}
	return s, nil
}

// Err converts a status into one of the sentinel errors, or nil when the
// schema is usable.
func (s *SchemaStatus) Err() error {
	switch {
	case s.Compatible:
		return nil
	case s.Dirty:
		return fmt.Errorf("%w: version %d, run `npcforge migrate force %d` then `npcforge migrate up`",
			ErrSchemaDirty, s.CurrentVersion, s.CurrentVersion-1)
	case s.CurrentVersion > s.RequiredVersion:
		return fmt.Errorf("%w: database v%d, binary requires v%d", ErrSchemaAhead, s.CurrentVersion, s.RequiredVersion)
	default:
		return fmt.Errorf("%w: current v%d, required v%d, run `npcforge migrate up`",
			ErrSchemaOutdated, s.CurrentVersion, s.RequiredVersion)
	}
}
