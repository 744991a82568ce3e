package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a world, NPC, or bot configuration does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPlacementConflict is returned when a bot configuration would break the
	// one-binding-per-server/channel rule.
	ErrPlacementConflict = errors.New("placement conflict")
)

// BaseModel holds the columns shared by every persisted entity.
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GenNewID returns a time-ordered UUID (v7), falling back to v4.
func GenNewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Bots     BotStore
	Entities EntityStore

	// Close releases the underlying database handle.
	Close func() error
}

// StoreConfig selects and configures a storage backend.
type StoreConfig struct {
	Mode           string // "standalone" (sqlite) or "managed" (postgres)
	PostgresDSN    string
	SQLitePath     string
	PlacementScope PlacementScope
}
