package pg

import (
	"fmt"

	"github.com/npcforge/npcforge/internal/store"
)

// NewPGStores creates all stores backed by Postgres (managed mode).
func NewPGStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	scope := cfg.PlacementScope
	if scope == "" {
		scope = store.PlacementServer
	}

	return &store.Stores{
		Bots:     NewPGBotStore(db, scope),
		Entities: NewPGEntityStore(db),
		Close:    db.Close,
	}, nil
}
